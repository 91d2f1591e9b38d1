package database

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type txKey struct{}
type hooksKey struct{}

// Transactor runs a unit of work inside one database transaction.
// Repositories pick the transaction up from the context via Conn.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type afterCommitHooks struct {
	mu  sync.Mutex
	fns []func(ctx context.Context)
}

func (h *afterCommitHooks) add(fn func(ctx context.Context)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fns = append(h.fns, fn)
}

// GORMTransactor implements Transactor on top of gorm.DB.Transaction.
type GORMTransactor struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewTransactor creates a Transactor bound to db.
func NewTransactor(db *gorm.DB, logger *zap.Logger) Transactor {
	return &GORMTransactor{db: db, logger: logger}
}

// WithinTransaction commits when fn returns nil and rolls back otherwise.
// Nested calls join the outer transaction. Hooks registered with AfterCommit
// run only once the outermost transaction has committed.
func (t *GORMTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}

	hooks := &afterCommitHooks{}
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txCtx := context.WithValue(ctx, txKey{}, tx)
		txCtx = context.WithValue(txCtx, hooksKey{}, hooks)
		return fn(txCtx)
	})
	if err != nil {
		return err
	}

	for _, hook := range hooks.fns {
		t.runHook(ctx, hook)
	}
	return nil
}

func (t *GORMTransactor) runHook(ctx context.Context, hook func(ctx context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("After-commit hook panicked", zap.Any("panic", r))
		}
	}()
	hook(ctx)
}

// Conn returns the transaction carried by ctx, or db bound to ctx when there is none.
func Conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}

// AfterCommit defers fn until the surrounding transaction commits.
// Outside a transaction fn runs immediately. A rolled back transaction drops it.
func AfterCommit(ctx context.Context, fn func(ctx context.Context)) {
	if hooks, ok := ctx.Value(hooksKey{}).(*afterCommitHooks); ok {
		hooks.add(fn)
		return
	}
	fn(ctx)
}
