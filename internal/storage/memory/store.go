// Package memory is an in-process implementation of the repositories.
//
// Transactions are serialized on a single store-wide lock and roll back
// through an undo log, so a transaction observes and leaves a consistent
// state exactly as a single-node database would.
package memory

import (
	"context"
	"fmt"
	"sync"

	"expobook/pkg/db"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Store struct {
	mu          sync.Mutex
	exhibitions map[string]*exhibitionRecord
	bookings    map[string]*bookingRecord
	users       map[string]*userRecord
	seq         uint64
}

var _ db.TransactionManager = (*Store)(nil)
var _ db.Pinger = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		exhibitions: make(map[string]*exhibitionRecord),
		bookings:    make(map[string]*bookingRecord),
		users:       make(map[string]*userRecord),
	}
}

type txKey struct{}

type tx struct {
	undo []func()
}

func (t *tx) record(fn func()) {
	if t != nil {
		t.undo = append(t.undo, fn)
	}
}

func (t *tx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

// ExecuteTransaction runs fn holding the store lock. Any error or panic from
// fn reverts every write made through ctx. Nested calls join the outer
// transaction.
func (s *Store) ExecuteTransaction(ctx context.Context, fn db.TransactionFunc) (err error) {
	if _, ok := ctx.Value(txKey{}).(*tx); ok {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := &tx{}
	defer func() {
		if r := recover(); r != nil {
			t.rollback()
			panic(r)
		}
		if err != nil {
			t.rollback()
		}
	}()

	return fn(context.WithValue(ctx, txKey{}, t))
}

// do runs op with the store locked. Inside a transaction the lock is already
// held and op's writes are recorded for rollback.
func (s *Store) do(ctx context.Context, op func(t *tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t, ok := ctx.Value(txKey{}).(*tx); ok {
		return op(t)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return op(nil)
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) newID() string {
	return primitive.NewObjectID().Hex()
}

// nextSeq orders records by insertion when timestamps tie.
func (s *Store) nextSeq() uint64 {
	s.seq++
	return s.seq
}

func validID(id string) bool {
	_, err := primitive.ObjectIDFromHex(id)
	return err == nil
}

func invalidID(sentinel error, id string) error {
	return fmt.Errorf("%w: %s", sentinel, id)
}
