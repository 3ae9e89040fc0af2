package testkit

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"xdao.co/dagstore/block"
	"xdao.co/dagstore/multihash"
	"xdao.co/dagstore/storage"
)

// NewBlockstore constructs a fresh, empty Blockstore for a test.
// The returned store MUST be isolated from other tests.
type NewBlockstore func(t *testing.T) storage.Blockstore

// RunBlockstoreConformance checks the storage.Blockstore contract.
func RunBlockstoreConformance(t *testing.T, newStore NewBlockstore) {
	t.Helper()

	t.Run("PutGetRoundTrip", func(t *testing.T) {
		bs := newStore(t)
		want := []byte("hello, blockstore")
		b := block.New(want)

		if err := bs.Put(b); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		got, err := bs.Get(multihash.Hash(want))
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !bytes.Equal(got.Data(), want) {
			t.Fatalf("Get bytes mismatch")
		}
		if !got.Multihash().Equal(b.Multihash()) {
			t.Fatalf("Get returned block with hash %s, want %s", got.Multihash(), b.Multihash())
		}
	})

	t.Run("EmptyBlock", func(t *testing.T) {
		bs := newStore(t)
		b := block.New(nil)
		if err := bs.Put(b); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		got, err := bs.Get(b.Multihash())
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if len(got.Data()) != 0 {
			t.Fatalf("expected empty block, got %d bytes", len(got.Data()))
		}
	})

	t.Run("PutIdempotent", func(t *testing.T) {
		bs := newStore(t)
		b := block.New([]byte("same bytes"))

		if err := bs.Put(b); err != nil {
			t.Fatalf("Put(1) failed: %v", err)
		}
		if ok, err := bs.Has(b.Multihash()); err != nil || !ok {
			t.Fatalf("Has after first Put: ok=%v err=%v", ok, err)
		}
		if err := bs.Put(b); err != nil {
			t.Fatalf("Put(2) failed: %v", err)
		}
		got, err := bs.Get(b.Multihash())
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !bytes.Equal(got.Data(), b.Data()) {
			t.Fatalf("Get bytes mismatch after second Put")
		}
	})

	t.Run("HasAndNotFound", func(t *testing.T) {
		bs := newStore(t)
		b := block.New([]byte("missing"))

		ok, err := bs.Has(b.Multihash())
		if err != nil {
			t.Fatalf("Has failed: %v", err)
		}
		if ok {
			t.Fatalf("Has returned true for missing block")
		}
		_, err = bs.Get(b.Multihash())
		if !storage.IsNotFound(err) {
			t.Fatalf("Get missing: got err=%v want ErrNotFound", err)
		}

		if err := bs.Put(b); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		ok, err = bs.Has(b.Multihash())
		if err != nil || !ok {
			t.Fatalf("Has after Put: ok=%v err=%v", ok, err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		bs := newStore(t)
		b := block.New([]byte("to delete"))
		if err := bs.Put(b); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if err := bs.Delete(b.Multihash()); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if ok, _ := bs.Has(b.Multihash()); ok {
			t.Fatalf("Has returned true after Delete")
		}
		if _, err := bs.Get(b.Multihash()); !storage.IsNotFound(err) {
			t.Fatalf("Get after Delete: got err=%v want ErrNotFound", err)
		}
		if err := bs.Delete(b.Multihash()); !storage.IsNotFound(err) {
			t.Fatalf("second Delete: got err=%v want ErrNotFound", err)
		}
		if err := bs.Put(b); err != nil {
			t.Fatalf("Put after Delete failed: %v", err)
		}
		if ok, _ := bs.Has(b.Multihash()); !ok {
			t.Fatalf("Has returned false after re-Put")
		}
	})

	t.Run("NonDefaultHashFunction", func(t *testing.T) {
		bs := newStore(t)
		data := []byte("sha512 addressed")
		h, err := multihash.Sum(data, multihash.SHA2_512)
		if err != nil {
			t.Fatalf("Sum failed: %v", err)
		}
		b, err := block.NewVerified(data, h)
		if err != nil {
			t.Fatalf("NewVerified failed: %v", err)
		}
		if err := bs.Put(b); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		got, err := bs.Get(h)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !bytes.Equal(got.Data(), data) {
			t.Fatalf("Get bytes mismatch")
		}
	})

	t.Run("ConcurrentPut", func(t *testing.T) {
		bs := newStore(t)
		var wg sync.WaitGroup
		errs := make(chan error, 32)
		for i := 0; i < 32; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				// Half the goroutines share a key.
				data := []byte(fmt.Sprintf("block-%d", i%16))
				errs <- bs.Put(block.New(data))
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Fatalf("concurrent Put failed: %v", err)
			}
		}
		for i := 0; i < 16; i++ {
			data := []byte(fmt.Sprintf("block-%d", i))
			got, err := bs.Get(multihash.Hash(data))
			if err != nil {
				t.Fatalf("Get(%d) failed: %v", i, err)
			}
			if !bytes.Equal(got.Data(), data) {
				t.Fatalf("Get(%d) bytes mismatch", i)
			}
		}
	})
}
