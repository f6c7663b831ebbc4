// internal/repository/entry.go
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/liminalhq/liminal/internal/domain"
	"github.com/liminalhq/liminal/internal/model"
	"github.com/liminalhq/liminal/internal/scope"
)

// EntryStore is the kind-agnostic persistence surface for journal rows. Every
// operation takes the scope filter; nothing reads or writes entry rows
// outside of it.
type EntryStore interface {
	Kind() model.Kind
	List(ctx context.Context, f scope.Filter) ([]model.Entry, error)
	Find(ctx context.Context, f scope.Filter, id uuid.UUID) (model.Entry, error)
	Create(ctx context.Context, f scope.Filter, e model.Entry) error
	Save(ctx context.Context, e model.Entry) error
	Delete(ctx context.Context, f scope.Filter, id uuid.UUID) error
}

// EntryRepository implements EntryStore for one concrete row type. The
// scoping logic is identical for every kind; the type parameter only pins the
// table.
type EntryRepository[T model.Entry] struct {
	db   *gorm.DB
	kind model.Kind
}

func NewEntryRepository[T model.Entry](db *gorm.DB) *EntryRepository[T] {
	var zero T
	return &EntryRepository[T]{db: db, kind: zero.Kind()}
}

func (r *EntryRepository[T]) Kind() model.Kind { return r.kind }

func (r *EntryRepository[T]) List(ctx context.Context, f scope.Filter) ([]model.Entry, error) {
	if f.None {
		// QueryScopeEmpty: a normal empty result, not a fault.
		return []model.Entry{}, nil
	}

	var rows []T
	if err := f.Apply(r.db.WithContext(ctx)).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing %s: %w", r.kind, err)
	}

	out := make([]model.Entry, len(rows))
	for i, row := range rows {
		out[i] = row
	}
	return out, nil
}

func (r *EntryRepository[T]) Find(ctx context.Context, f scope.Filter, id uuid.UUID) (model.Entry, error) {
	if f.None {
		return nil, domain.ErrEntryNotFound
	}

	e, err := model.NewEntry(r.kind)
	if err != nil {
		return nil, err
	}
	if err := f.Apply(r.db.WithContext(ctx)).First(e, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrEntryNotFound
		}
		return nil, fmt.Errorf("finding %s: %w", r.kind, err)
	}
	return e, nil
}

func (r *EntryRepository[T]) Create(ctx context.Context, f scope.Filter, e model.Entry) error {
	if !f.Writable() {
		return domain.ErrNotAMember
	}
	f.Stamp(e)
	if err := r.db.WithContext(ctx).Create(e).Error; err != nil {
		return fmt.Errorf("creating %s: %w", r.kind, err)
	}
	return nil
}

func (r *EntryRepository[T]) Save(ctx context.Context, e model.Entry) error {
	if err := r.db.WithContext(ctx).Save(e).Error; err != nil {
		return fmt.Errorf("saving %s: %w", r.kind, err)
	}
	return nil
}

func (r *EntryRepository[T]) Delete(ctx context.Context, f scope.Filter, id uuid.UUID) error {
	if f.None {
		return domain.ErrEntryNotFound
	}

	e, err := model.NewEntry(r.kind)
	if err != nil {
		return err
	}
	result := f.Apply(r.db.WithContext(ctx)).Delete(e, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("deleting %s: %w", r.kind, result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}

// NewEntryStores builds one store per entry kind.
func NewEntryStores(db *gorm.DB) map[model.Kind]EntryStore {
	return map[model.Kind]EntryStore{
		model.KindThreshold: NewEntryRepository[*model.Threshold](db),
		model.KindAbsence:   NewEntryRepository[*model.Absence](db),
		model.KindVeil:      NewEntryRepository[*model.Veil](db),
		model.KindSignal:    NewEntryRepository[*model.Signal](db),
		model.KindSpace:     NewEntryRepository[*model.Space](db),
		model.KindTag:       NewEntryRepository[*model.Tag](db),
	}
}
