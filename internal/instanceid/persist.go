package instanceid

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/openbmc-go/pldmd/internal/logger"
)

// PersistentDB wraps DB with an on-disk badger mirror of the reservation
// bitmap, so a restart does not hand out an instance-id the host may still
// associate with a pre-restart request (spec §3.7 crash-recovery
// enrichment). Gated behind internal/config's MCTPConfig.PersistInstanceIDs;
// the in-memory DB alone is sufficient for correctness.
type PersistentDB struct {
	*DB
	store *badger.DB
}

// OpenPersistentDB opens (creating if absent) a badger store at dir and
// replays its reservation keys into a fresh in-memory DB.
func OpenPersistentDB(dir string) (*PersistentDB, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	store, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("instanceid: open badger store at %s: %w", dir, err)
	}

	pdb := &PersistentDB{DB: NewDB(), store: store}
	if err := pdb.restore(); err != nil {
		_ = store.Close()
		return nil, err
	}
	return pdb, nil
}

// reservationKey encodes one (eid, instance-id) reservation as a 2-byte
// badger key.
func reservationKey(eid, id uint8) []byte {
	return []byte{eid, id}
}

func (p *PersistentDB) restore() error {
	return p.store.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			k := it.Item().Key()
			if len(k) != 2 {
				continue
			}
			if err := p.DB.Reserve(k[0], k[1]); err != nil && err != ErrAlreadyReserved {
				return fmt.Errorf("instanceid: restore %x: %w", k, err)
			}
		}
		return nil
	})
}

// Next reserves the next free id for eid, as DB.Next, and durably records
// the reservation before returning it.
func (p *PersistentDB) Next(eid uint8) (uint8, error) {
	id, err := p.DB.Next(eid)
	if err != nil {
		return 0, err
	}
	if err := p.store.Update(func(txn *badger.Txn) error {
		return txn.Set(reservationKey(eid, id), nil)
	}); err != nil {
		p.DB.Free(eid, id)
		return 0, fmt.Errorf("instanceid: persist reservation for eid %d: %w", eid, err)
	}
	return id, nil
}

// Free releases id for eid, as DB.Free, and removes its durable record.
// Logging (not returning) a badger failure here matches the rest of this
// stack's "an audit/persistence write never fails the operation it
// describes" convention — the in-memory bitmap is already authoritative for
// this process's lifetime.
func (p *PersistentDB) Free(eid, id uint8) {
	p.DB.Free(eid, id)
	if err := p.store.Update(func(txn *badger.Txn) error {
		return txn.Delete(reservationKey(eid, id))
	}); err != nil {
		logger.Warn("instanceid: remove persisted reservation failed", logger.EID(eid), logger.InstanceID(id), logger.Err(err))
	}
}

// Close closes the underlying badger store.
func (p *PersistentDB) Close() error {
	return p.store.Close()
}
