package receipt

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"
)

const expenseBucket = "expenses"

// ErrReceiptNotFound is returned when no receipt has the requested ID
var ErrReceiptNotFound = errors.New("receipt not found")

// DB persists confirmed receipts
type DB interface {
	SaveReceipt(receipt *Receipt) error
	GetReceipt(id string) (*Receipt, error)
	// ListReceipts returns receipts newest first
	ListReceipts() ([]*Receipt, error)
	DeleteReceipt(id string) error
	Close() error
}

// BoltDB implements DB on a single bbolt file
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB opens or creates the database at path
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(expenseBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}

	return &BoltDB{db: db}, nil
}

func (b *BoltDB) SaveReceipt(receipt *Receipt) error {
	if receipt.ID == "" {
		return errors.New("receipt has no id")
	}
	data, err := json.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("marshaling receipt: %w", err)
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(expenseBucket)).Put([]byte(receipt.ID), data)
	})
}

func (b *BoltDB) GetReceipt(id string) (*Receipt, error) {
	var receipt Receipt
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(expenseBucket)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrReceiptNotFound, id)
		}
		return json.Unmarshal(data, &receipt)
	})
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (b *BoltDB) ListReceipts() ([]*Receipt, error) {
	receipts := make([]*Receipt, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(expenseBucket)).ForEach(func(k, v []byte) error {
			var receipt Receipt
			if err := json.Unmarshal(v, &receipt); err != nil {
				return fmt.Errorf("unmarshaling receipt %s: %w", k, err)
			}
			receipts = append(receipts, &receipt)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(receipts, func(i, j int) bool {
		if receipts[i].Date.Equal(receipts[j].Date) {
			return receipts[i].CreatedAt.After(receipts[j].CreatedAt)
		}
		return receipts[i].Date.After(receipts[j].Date)
	})
	return receipts, nil
}

func (b *BoltDB) DeleteReceipt(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(expenseBucket))
		if bucket.Get([]byte(id)) == nil {
			return fmt.Errorf("%w: %s", ErrReceiptNotFound, id)
		}
		return bucket.Delete([]byte(id))
	})
}

func (b *BoltDB) Close() error {
	return b.db.Close()
}
