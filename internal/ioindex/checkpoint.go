package ioindex

import (
	"encoding/binary"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/gnames/gnfmt"
	"github.com/gnames/gnsys"
)

// checkpointPrefix namespaces embedding batch checkpoints inside the
// Badger store.
const checkpointPrefix = "emb"

// checkpoints is a Badger-backed store of finished embedding batches.
// Keys combine the index fingerprint with a big-endian batch number;
// values are gob-encoded vector slices. A rerun after a crash loads
// finished batches and embeds only the remainder.
type checkpoints struct {
	db *badger.DB
}

// openCheckpoints opens (or creates) the checkpoint store. Only one
// build may hold the store at a time; Badger enforces the lock.
func openCheckpoints(dir string) (*checkpoints, error) {
	if err := gnsys.MakeDir(dir); err != nil {
		return nil, CheckpointError("create checkpoint directory", err)
	}

	options := badger.DefaultOptions(dir)
	options.Logger = nil // Disable badger's internal logging

	db, err := badger.Open(options)
	if err != nil {
		return nil, CheckpointError("open checkpoint store", err)
	}
	return &checkpoints{db: db}, nil
}

// key layout: emb:<fingerprint>:<batch number, big-endian>.
// Big-endian batch numbers keep keys sorted by batch.
func checkpointKey(fp string, batch int) []byte {
	prefix := []byte(checkpointPrefix + ":" + fp + ":")
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(batch))
	return buf
}

// get loads one checkpointed batch. A missing key is not an error.
func (c *checkpoints) get(fp string, batch int) ([][]float32, bool, error) {
	var valBytes []byte

	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(checkpointKey(fp, batch))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		valBytes, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, false, CheckpointError("read checkpoint", err)
	}
	if valBytes == nil {
		return nil, false, nil
	}

	enc := gnfmt.GNgob{}
	var vecs [][]float32
	if err := enc.Decode(valBytes, &vecs); err != nil {
		return nil, false, CheckpointError("decode checkpoint", err)
	}
	return vecs, true, nil
}

// put stores one finished batch idempotently.
func (c *checkpoints) put(fp string, batch int, vecs [][]float32) error {
	enc := gnfmt.GNgob{}
	valBytes, err := enc.Encode(vecs)
	if err != nil {
		return CheckpointError("encode checkpoint", err)
	}

	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(checkpointKey(fp, batch), valBytes)
	})
	if err != nil {
		return CheckpointError("write checkpoint", err)
	}
	return nil
}

// clear drops every checkpoint of one index fingerprint. Called after
// a successful publish.
func (c *checkpoints) clear(fp string) error {
	prefix := []byte(checkpointPrefix + ":" + fp + ":")
	if err := c.db.DropPrefix(prefix); err != nil {
		return CheckpointError("clear checkpoints", err)
	}
	return nil
}

// Close releases the Badger store.
func (c *checkpoints) Close() error {
	return c.db.Close()
}
