// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/z5labs/lambdaext/internal/try"

	"github.com/stretchr/testify/assert"
)

func TestSequentialRuntime_Run(t *testing.T) {
	t.Run("will stop without an error", func(t *testing.T) {
		t.Run("if the context is cancelled before consuming", func(t *testing.T) {
			c := ConsumerFunc[int](func(ctx context.Context) (int, error) {
				return 0, nil
			})
			p := ProcessorFunc[int](func(ctx context.Context, i int) error {
				return nil
			})

			rt := Sequential[int](c, p)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			cancel()
			err := rt.Run(ctx)
			if !assert.Nil(t, err) {
				return
			}
		})

		t.Run("after processing an item consumed while the context was cancelled", func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			var consumed int
			c := ConsumerFunc[int](func(ctx context.Context) (int, error) {
				consumed += 1
				cancel()
				return 7, nil
			})

			var processed []int
			var processCtxErr error
			p := ProcessorFunc[int](func(ctx context.Context, i int) error {
				processed = append(processed, i)
				processCtxErr = ctx.Err()
				return nil
			})

			rt := Sequential[int](c, p, FailFast())

			err := rt.Run(ctx)
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, []int{7}, processed) {
				return
			}
			if !assert.Nil(t, processCtxErr) {
				return
			}
			if !assert.Equal(t, 1, consumed) {
				return
			}
		})

		t.Run("if the consumer fails because the context was cancelled", func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			c := ConsumerFunc[int](func(ctx context.Context) (int, error) {
				cancel()
				return 0, ctx.Err()
			})
			p := ProcessorFunc[int](func(ctx context.Context, i int) error {
				return nil
			})

			rt := Sequential[int](c, p, FailFast())

			err := rt.Run(ctx)
			if !assert.Nil(t, err) {
				return
			}
		})

		t.Run("if the consumer returns ErrEndOfItems", func(t *testing.T) {
			var n int
			c := ConsumerFunc[int](func(ctx context.Context) (int, error) {
				n += 1
				if n > 3 {
					return 0, ErrEndOfItems
				}
				return n, nil
			})

			var ints []int
			p := ProcessorFunc[int](func(ctx context.Context, i int) error {
				ints = append(ints, i)
				return nil
			})

			rt := Sequential[int](c, p)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			err := rt.Run(ctx)
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, []int{1, 2, 3}, ints) {
				return
			}
		})
	})

	t.Run("will continue", func(t *testing.T) {
		t.Run("if it fails to consume", func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			var count atomic.Uint64
			c := ConsumerFunc[int](func(ctx context.Context) (int, error) {
				if count.Add(1) > 5 {
					cancel()
				}
				return 0, errors.New("failed to consume")
			})

			called := false
			p := ProcessorFunc[int](func(ctx context.Context, i int) error {
				called = true
				return nil
			})

			rt := Sequential[int](c, p)

			err := rt.Run(ctx)
			if !assert.Nil(t, err) {
				return
			}
			if !assert.False(t, called) {
				return
			}
		})

		t.Run("if it panics while processing", func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			c := ConsumerFunc[int](func(ctx context.Context) (int, error) {
				return 0, nil
			})

			var count atomic.Uint64
			p := ProcessorFunc[int](func(ctx context.Context, i int) error {
				if count.Add(1) > 5 {
					cancel()
				}
				panic("panic while processing")
			})

			rt := Sequential[int](c, p)

			err := rt.Run(ctx)
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Greater(t, count.Load(), uint64(1)) {
				return
			}
		})
	})

	t.Run("will return an error", func(t *testing.T) {
		t.Run("if it fails to consume and FailFast is set", func(t *testing.T) {
			consumeErr := errors.New("failed to consume")
			c := ConsumerFunc[int](func(ctx context.Context) (int, error) {
				return 0, consumeErr
			})
			p := ProcessorFunc[int](func(ctx context.Context, i int) error {
				return nil
			})

			rt := Sequential[int](c, p, FailFast())

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			err := rt.Run(ctx)

			var cerr ConsumeError
			if !assert.ErrorAs(t, err, &cerr) {
				return
			}
			if !assert.ErrorIs(t, err, consumeErr) {
				return
			}
		})

		t.Run("if it fails to process and FailFast is set", func(t *testing.T) {
			processErr := errors.New("failed to process")
			c := ConsumerFunc[int](func(ctx context.Context) (int, error) {
				return 0, nil
			})

			var count atomic.Uint64
			p := ProcessorFunc[int](func(ctx context.Context, i int) error {
				count.Add(1)
				return processErr
			})

			rt := Sequential[int](c, p, FailFast())

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			err := rt.Run(ctx)

			var perr ProcessError
			if !assert.ErrorAs(t, err, &perr) {
				return
			}
			if !assert.ErrorIs(t, err, processErr) {
				return
			}
			if !assert.Equal(t, uint64(1), count.Load()) {
				return
			}
		})

		t.Run("if it panics while consuming and FailFast is set", func(t *testing.T) {
			c := ConsumerFunc[int](func(ctx context.Context) (int, error) {
				panic("panic while consuming")
			})
			p := ProcessorFunc[int](func(ctx context.Context, i int) error {
				return nil
			})

			rt := Sequential[int](c, p, FailFast())

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			err := rt.Run(ctx)

			var perr try.PanicError
			if !assert.ErrorAs(t, err, &perr) {
				return
			}
		})
	})

	t.Run("will never process concurrently", func(t *testing.T) {
		var n int
		c := ConsumerFunc[int](func(ctx context.Context) (int, error) {
			n += 1
			if n > 50 {
				return 0, ErrEndOfItems
			}
			return n, nil
		})

		var inFlight, maxInFlight atomic.Int32
		p := ProcessorFunc[int](func(ctx context.Context, i int) error {
			cur := inFlight.Add(1)
			defer inFlight.Add(-1)
			if cur > maxInFlight.Load() {
				maxInFlight.Store(cur)
			}
			return nil
		})

		rt := Sequential[int](c, p)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := rt.Run(ctx)
		if !assert.Nil(t, err) {
			return
		}
		if !assert.Equal(t, int32(1), maxInFlight.Load()) {
			return
		}
	})
}

func TestProcessors(t *testing.T) {
	t.Run("will call every processor in order", func(t *testing.T) {
		var calls []string
		p := Processors[int](
			ProcessorFunc[int](func(ctx context.Context, i int) error {
				calls = append(calls, "first")
				return nil
			}),
			ProcessorFunc[int](func(ctx context.Context, i int) error {
				calls = append(calls, "second")
				return nil
			}),
		)

		err := p.Process(context.Background(), 1)
		if !assert.Nil(t, err) {
			return
		}
		if !assert.Equal(t, []string{"first", "second"}, calls) {
			return
		}
	})

	t.Run("will stop at the first error", func(t *testing.T) {
		firstErr := errors.New("first failed")
		called := false
		p := Processors[int](
			ProcessorFunc[int](func(ctx context.Context, i int) error {
				return firstErr
			}),
			ProcessorFunc[int](func(ctx context.Context, i int) error {
				called = true
				return nil
			}),
		)

		err := p.Process(context.Background(), 1)
		if !assert.ErrorIs(t, err, firstErr) {
			return
		}
		if !assert.False(t, called) {
			return
		}
	})
}
