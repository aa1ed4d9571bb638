/*
 * Copyright 2025 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package tx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRequiredJoinsOuterTransaction(t *testing.T) {
	d := &fakeDriver{}
	m := NewManager(d)
	err := Execute(context.Background(), m, propagating(PropagationRequired), func(ctx context.Context) error {
		outer, err := CurrentStatus(ctx)
		assert.Nil(t, err)
		assert.True(t, outer.IsNewTransaction())
		outerTx, ok := Resource(ctx, d)
		assert.True(t, ok)

		return Execute(ctx, m, propagating(PropagationRequired), func(ctx context.Context) error {
			inner, err := CurrentStatus(ctx)
			assert.Nil(t, err)
			assert.NotSame(t, outer, inner)
			assert.False(t, inner.IsNewTransaction())
			assert.True(t, inner.HasTransaction())
			assert.Equal(t, outer.Transaction(), inner.Transaction())
			innerTx, _ := Resource(ctx, d)
			assert.Equal(t, outerTx, innerTx)
			assert.Same(t, outer, CurrentInfo(ctx).Previous().Status)
			return nil
		})
	})
	assert.Nil(t, err)
	assert.Equal(t, []string{"begin tx1", "commit tx1"}, d.list())
}

func TestRequiresNewSuspendsAndResumes(t *testing.T) {
	for _, fail := range []bool{false, true} {
		d := &fakeDriver{}
		m := NewManager(d)
		err := Execute(context.Background(), m, propagating(PropagationRequired), func(ctx context.Context) error {
			outerTx, _ := Resource(ctx, d)
			innerErr := Execute(ctx, m, propagating(PropagationRequiresNew), func(ctx context.Context) error {
				inner, _ := CurrentStatus(ctx)
				assert.True(t, inner.IsNewTransaction())
				assert.True(t, inner.HasSuspended())
				innerTx, _ := Resource(ctx, d)
				assert.NotEqual(t, outerTx, innerTx)
				if fail {
					return errBusiness
				}
				return nil
			})
			if fail {
				assert.Equal(t, errBusiness, innerErr)
			}
			// the outer transaction is current again
			resumed, _ := Resource(ctx, d)
			assert.Equal(t, outerTx, resumed)
			outer, _ := CurrentStatus(ctx)
			assert.True(t, outer.IsNewTransaction())
			assert.False(t, outer.IsRollbackOnly())
			return nil
		})
		assert.Nil(t, err)
		inner := "commit tx2"
		if fail {
			inner = "rollback tx2"
		}
		assert.Equal(t, []string{"begin tx1", "begin tx2", inner, "commit tx1"}, d.list())
	}
}

func TestNestedUsesSavepoints(t *testing.T) {
	d := &fakeDriver{}
	m := NewManager(d)
	err := Execute(context.Background(), m, propagating(PropagationRequired), func(ctx context.Context) error {
		_ = Execute(ctx, m, propagating(PropagationNested), func(ctx context.Context) error {
			s, _ := CurrentStatus(ctx)
			assert.True(t, s.HasSavepoint())
			assert.False(t, s.IsNewTransaction())
			return errBusiness
		})
		return Execute(ctx, m, propagating(PropagationNested), func(ctx context.Context) error {
			return nil
		})
	})
	assert.Nil(t, err)
	assert.Equal(t, []string{
		"begin tx1",
		"savepoint tx1.1", "rollback to tx1.1", "release tx1.1",
		"savepoint tx1.2", "release tx1.2",
		"commit tx1",
	}, d.list())

	// without an outer transaction NESTED starts one
	d2 := &fakeDriver{}
	assert.Nil(t, Execute(context.Background(), NewManager(d2), propagating(PropagationNested), func(ctx context.Context) error {
		return nil
	}))
	assert.Equal(t, []string{"begin tx1", "commit tx1"}, d2.list())
}

func TestNestedWithoutSavepointSupport(t *testing.T) {
	d := &plainDriver{}
	m := NewManager(d)
	err := Execute(context.Background(), m, propagating(PropagationRequired), func(ctx context.Context) error {
		return Execute(ctx, m, propagating(PropagationNested), func(ctx context.Context) error {
			return nil
		})
	})
	var ise *IllegalStateError
	assert.True(t, errors.As(err, &ise))

	fd := &fakeDriver{}
	strict := NewManager(fd, WithNestedTransactions(false))
	err = Execute(context.Background(), strict, propagating(PropagationRequired), func(ctx context.Context) error {
		return Execute(ctx, strict, propagating(PropagationNested), func(ctx context.Context) error {
			return nil
		})
	})
	assert.True(t, errors.As(err, &ise))
}

func TestPropagationWithoutTransaction(t *testing.T) {
	d := &fakeDriver{}
	m := NewManager(d)
	ctx := context.Background()

	err := Execute(ctx, m, propagating(PropagationMandatory), func(ctx context.Context) error {
		t.Fatal("must not run")
		return nil
	})
	var ise *IllegalStateError
	assert.True(t, errors.As(err, &ise))

	for _, p := range []Propagation{PropagationSupports, PropagationNotSupported, PropagationNever} {
		err = Execute(ctx, m, propagating(p), func(ctx context.Context) error {
			assert.False(t, IsActive(ctx))
			s, err := CurrentStatus(ctx)
			assert.Nil(t, err)
			assert.False(t, s.HasTransaction())
			return nil
		})
		assert.Nil(t, err)
	}
	assert.Empty(t, d.list())
}

func TestPropagationWithTransaction(t *testing.T) {
	d := &fakeDriver{}
	m := NewManager(d)
	err := Execute(context.Background(), m, propagating(PropagationRequired), func(ctx context.Context) error {
		err := Execute(ctx, m, propagating(PropagationNever), func(ctx context.Context) error {
			t.Fatal("must not run")
			return nil
		})
		var ise *IllegalStateError
		assert.True(t, errors.As(err, &ise))

		err = Execute(ctx, m, propagating(PropagationNotSupported), func(ctx context.Context) error {
			assert.False(t, IsActive(ctx))
			_, ok := Resource(ctx, d)
			assert.False(t, ok)
			s, _ := CurrentStatus(ctx)
			assert.True(t, s.HasSuspended())
			return nil
		})
		assert.Nil(t, err)

		return Execute(ctx, m, propagating(PropagationMandatory), func(ctx context.Context) error {
			assert.True(t, IsActive(ctx))
			return nil
		})
	})
	assert.Nil(t, err)
	assert.Equal(t, []string{"begin tx1", "commit tx1"}, d.list())
}

func TestParticipantFailureMarksGlobalRollbackOnly(t *testing.T) {
	d := &fakeDriver{}
	m := NewManager(d)
	err := Execute(context.Background(), m, DefaultAttribute().WithName("outer"), func(ctx context.Context) error {
		innerErr := Execute(ctx, m, DefaultAttribute(), func(ctx context.Context) error {
			return errBusiness
		})
		assert.Equal(t, errBusiness, innerErr)
		outer, _ := CurrentStatus(ctx)
		assert.True(t, outer.IsGlobalRollbackOnly())
		// the failure is swallowed, but the transaction cannot commit
		return nil
	})
	var ure *UnexpectedRollbackError
	assert.True(t, errors.As(err, &ure))
	assert.Equal(t, "outer", ure.Name)
	assert.Equal(t, []string{"begin tx1", "rollback tx1"}, d.list())

	// participants may be told not to poison the outer transaction
	d2 := &fakeDriver{}
	lenient := NewManager(d2, WithGlobalRollbackOnParticipationFailure(false))
	err = Execute(context.Background(), lenient, DefaultAttribute(), func(ctx context.Context) error {
		_ = Execute(ctx, lenient, DefaultAttribute(), func(ctx context.Context) error {
			return errBusiness
		})
		return nil
	})
	assert.Nil(t, err)
	assert.Equal(t, []string{"begin tx1", "commit tx1"}, d2.list())
}

func TestFailEarlyOnGlobalRollbackOnly(t *testing.T) {
	d := &fakeDriver{}
	m := NewManager(d, WithFailEarlyOnGlobalRollbackOnly(true))
	err := Execute(context.Background(), m, DefaultAttribute(), func(ctx context.Context) error {
		_ = Execute(ctx, m, DefaultAttribute(), func(ctx context.Context) error {
			return errBusiness
		})
		err := Execute(ctx, m, DefaultAttribute(), func(ctx context.Context) error {
			return nil
		})
		var ure *UnexpectedRollbackError
		assert.True(t, errors.As(err, &ure))
		return nil
	})
	var ure *UnexpectedRollbackError
	assert.True(t, errors.As(err, &ure))
}

func TestSetRollbackOnly(t *testing.T) {
	d := &fakeDriver{}
	m := NewManager(d)
	err := Execute(context.Background(), m, DefaultAttribute(), func(ctx context.Context) error {
		s, err := CurrentStatus(ctx)
		assert.Nil(t, err)
		s.SetRollbackOnly()
		assert.True(t, s.IsRollbackOnly())
		return nil
	})
	assert.Nil(t, err)
	assert.Equal(t, []string{"begin tx1", "rollback tx1"}, d.list())
}

func TestCompleteTwice(t *testing.T) {
	m := NewManager(&fakeDriver{})
	ctx, s, err := m.Begin(context.Background(), DefaultAttribute())
	assert.Nil(t, err)
	assert.Nil(t, m.Commit(ctx, s))
	assert.True(t, s.IsCompleted())
	var ise *IllegalStateError
	assert.True(t, errors.As(m.Commit(ctx, s), &ise))
	assert.True(t, errors.As(m.Rollback(ctx, s), &ise))
}

func TestTimeout(t *testing.T) {
	d := &fakeDriver{}
	m := NewManager(d)
	a := DefaultAttribute()
	a.Timeout = 10 * time.Millisecond
	err := Execute(context.Background(), m, a, func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		assert.True(t, ok)
		<-ctx.Done()
		return nil
	})
	assert.True(t, errors.Is(err, ErrTransactionTimeout))
	assert.Equal(t, []string{"begin tx1", "rollback tx1"}, d.list())
	_, ok := d.lastCtx.Deadline()
	assert.True(t, ok)

	a.Timeout = -time.Second
	err = Execute(context.Background(), m, a, func(ctx context.Context) error { return nil })
	assert.True(t, errors.Is(err, ErrInvalidAttribute))
}

func TestPanicRollsBack(t *testing.T) {
	d := &fakeDriver{}
	m := NewManager(d)
	assert.Panics(t, func() {
		_ = Execute(context.Background(), m, DefaultAttribute(), func(ctx context.Context) error {
			panic("boom")
		})
	})
	assert.Equal(t, []string{"begin tx1", "rollback tx1"}, d.list())
}

func TestStackOutsideTransaction(t *testing.T) {
	_, err := CurrentStatus(context.Background())
	assert.Equal(t, ErrNoTransaction, err)
	assert.Nil(t, CurrentInfo(context.Background()))
	assert.False(t, IsActive(context.Background()))

	// a context captured inside a finished call no longer reports it
	var leaked context.Context
	_ = Execute(context.Background(), NewManager(&fakeDriver{}), DefaultAttribute(), func(ctx context.Context) error {
		leaked = ctx
		return nil
	})
	assert.Nil(t, CurrentInfo(leaked))
}

// observingManager records the running call seen while completing.
type observingManager struct {
	Manager
	seen []*Info
}

func (m *observingManager) Commit(ctx context.Context, status *Status) error {
	m.seen = append(m.seen, CurrentInfo(ctx))
	return m.Manager.Commit(ctx, status)
}

func (m *observingManager) Rollback(ctx context.Context, status *Status) error {
	m.seen = append(m.seen, CurrentInfo(ctx))
	return m.Manager.Rollback(ctx, status)
}

func TestCompletionSeesEnclosingCall(t *testing.T) {
	d := &fakeDriver{}
	m := &observingManager{Manager: NewManager(d)}

	var outer *Info
	err := Execute(context.Background(), m, DefaultAttribute(), func(ctx context.Context) error {
		outer = CurrentInfo(ctx)
		_ = Execute(ctx, m, propagating(PropagationRequiresNew), func(ctx context.Context) error {
			return errBusiness
		})
		return Execute(ctx, m, propagating(PropagationRequiresNew), func(ctx context.Context) error {
			return nil
		})
	})
	assert.Nil(t, err)
	assert.NotNil(t, outer)
	// inner rollback, inner commit, outer commit
	assert.Equal(t, []*Info{outer, outer, nil}, m.seen)

	m.seen = nil
	assert.Panics(t, func() {
		_ = Execute(context.Background(), m, DefaultAttribute(), func(ctx context.Context) error {
			panic("boom")
		})
	})
	assert.Equal(t, []*Info{nil}, m.seen)
}
