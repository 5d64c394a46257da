// Command datbench drives the sgl and mlt dictionaries with a batch of
// HMAC-derived random keys and reports insert/search/pack/rebuild
// timings and occupancy stats.
package main

import (
	"crypto/hmac"
	crand "crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/dendrondb/dat/mlt"
	"github.com/dendrondb/dat/sgl"
	"github.com/dendrondb/dat/trie"
)

const hmacKey = "d259c7f656caf7f1"

func newRand() *rand.Rand {
	var seedBytes [8]byte
	if _, err := crand.Read(seedBytes[:]); err != nil {
		panic(err)
	}
	seed := int64(binary.LittleEndian.Uint64(seedBytes[:]))
	return rand.New(rand.NewSource(seed))
}

// genKeys derives n distinct keys by hashing a random suffix under a
// fixed HMAC key, then tagging each with a short "p<i%64>_" prefix.
// runMLT registers no prefixes, so MLT splits every key after its first
// byte and all of these keys share one suffix subtrie.
func genKeys(n int) []string {
	rng := newRand()
	h := hmac.New(sha256.New, []byte(hmacKey))
	keys := make([]string, n)
	for i := 0; i < n; i++ {
		var buf [8]byte
		if _, err := rng.Read(buf[:]); err != nil {
			panic(err)
		}
		h.Reset()
		h.Write(buf[:])
		digest := hex.EncodeToString(h.Sum(nil))
		keys[i] = fmt.Sprintf("p%d_%s", i%64, digest[:16])
	}
	return keys
}

func main() {
	n := flag.Int("n", 200000, "number of keys to insert")
	flag.Parse()

	keys := genKeys(*n)

	fmt.Println("== sgl ==")
	runSGL(keys)

	fmt.Println("== mlt ==")
	runMLT(keys)
}

func runSGL(keys []string) {
	d := sgl.New()
	start := time.Now()
	for i, k := range keys {
		if _, err := d.Insert([]byte(k), uint32(i)); err != nil {
			fmt.Fprintln(os.Stderr, "insert:", err)
			os.Exit(1)
		}
	}
	fmt.Printf("insert %d keys: %s\n", len(keys), time.Since(start))

	start = time.Now()
	for _, k := range keys {
		if _, ok := d.Search([]byte(k)); !ok {
			fmt.Fprintln(os.Stderr, "missing key:", k)
			os.Exit(1)
		}
	}
	fmt.Printf("search %d keys: %s\n", len(keys), time.Since(start))

	printStat("before pack", d.Stat())
	start = time.Now()
	d.Pack()
	fmt.Printf("pack: %s\n", time.Since(start))
	printStat("after pack", d.Stat())

	start = time.Now()
	d.Shrink()
	fmt.Printf("shrink: %s\n", time.Since(start))
	printStat("after shrink", d.Stat())
}

func runMLT(keys []string) {
	d := mlt.New()
	start := time.Now()
	for i, k := range keys {
		if _, err := d.Insert([]byte(k), uint32(i)); err != nil {
			fmt.Fprintln(os.Stderr, "insert:", err)
			os.Exit(1)
		}
	}
	fmt.Printf("insert %d keys: %s\n", len(keys), time.Since(start))

	start = time.Now()
	for _, k := range keys {
		if _, ok := d.Search([]byte(k)); !ok {
			fmt.Fprintln(os.Stderr, "missing key:", k)
			os.Exit(1)
		}
	}
	fmt.Printf("search %d keys: %s\n", len(keys), time.Since(start))

	printStat("before rebuild", d.Stat())
	start = time.Now()
	if err := d.Rebuild(); err != nil {
		fmt.Fprintln(os.Stderr, "rebuild:", err)
		os.Exit(1)
	}
	fmt.Printf("rebuild: %s\n", time.Since(start))
	printStat("after rebuild", d.Stat())

	start = time.Now()
	if err := d.Shrink(); err != nil {
		fmt.Fprintln(os.Stderr, "shrink:", err)
		os.Exit(1)
	}
	fmt.Printf("shrink: %s\n", time.Since(start))
	printStat("after shrink", d.Stat())
}

func printStat(label string, st trie.Stat) {
	fmt.Printf("%s: num_keys=%d bc_size=%d tail_size=%d size_in_bytes=%d\n",
		label, st.NumKeys, st.BcSize, st.TailSize, st.SizeInBytes)
}
