package spcall

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// CallNoResult executes p for its side effects. It only runs when the
// profile expects no result sets; otherwise the call is skipped.
func CallNoResult(c *Context, p Procedure, input any) (Status, error) {
	return CallNoResultContext(context.Background(), c, p, input)
}

// CallNoResultContext is CallNoResult bounded by ctx.
func CallNoResultContext(ctx context.Context, c *Context, p Procedure, input any) (Status, error) {
	status := Status{Binding: p.BindFrom(input), Outcome: OutcomeSkipped}
	if p.ResultSetCount() != 0 {
		c.logCall(p, status)
		return status, nil
	}

	params := c.params(p)
	args, err := c.dialect.Args(params)
	if err != nil {
		return c.fail(p, status, err)
	}
	if _, err := c.queryer().ExecContext(ctx, c.dialect.CallText(p.Name(), params), args...); err != nil {
		return c.fail(p, status, errors.WithStack(err))
	}
	status.Outcome = OutcomeExecuted
	c.logCall(p, status)
	return status, nil
}

// CallNoResultTimeout executes p as a stored-procedure command with a
// timeout. It opens the context's connection when needed and leaves it open.
func CallNoResultTimeout(ctx context.Context, c *Context, p Procedure, input any, timeoutMinutes int) (Status, error) {
	status := Status{Binding: p.BindFrom(input), Outcome: OutcomeSkipped}
	if p.ResultSetCount() != 0 {
		c.logCall(p, status)
		return status, nil
	}

	ctx, cancel := c.withTimeout(ctx, timeoutMinutes)
	defer cancel()

	conn, err := c.open(ctx)
	if err != nil {
		return c.fail(p, status, err)
	}
	params := c.params(p)
	args, err := c.dialect.Args(params)
	if err != nil {
		return c.fail(p, status, err)
	}
	if _, err := conn.ExecContext(ctx, c.dialect.ProcedureText(p.Name(), params), args...); err != nil {
		return c.fail(p, status, errors.WithStack(err))
	}
	status.Outcome = OutcomeExecuted
	c.logCall(p, status)
	return status, nil
}

// CallSingleSet executes p and maps its only result set into a []T. With
// resetToSingle the profile is first switched to one result set. The
// profile is released afterwards.
func CallSingleSet[T any](c *Context, p Procedure, input any, resetToSingle bool) (Single[T], error) {
	return CallSingleSetContext[T](context.Background(), c, p, input, resetToSingle)
}

// CallSingleSetContext is CallSingleSet bounded by ctx.
func CallSingleSetContext[T any](ctx context.Context, c *Context, p Procedure, input any, resetToSingle bool) (Single[T], error) {
	res := Single[T]{Status: Status{Binding: p.BindFrom(input), Outcome: OutcomeSkipped}}
	if resetToSingle {
		p.SetResultSetCount(1)
	}

	if p.ResultSetCount() == 1 {
		err := c.fetch(ctx, c.queryer(), p, c.dialect.CallText(p.Name(), c.params(p)), 1, func(r *setReader) (err error) {
			res.Rows, err = readSet[T](r)
			return err
		})
		if err != nil {
			status, err := c.fail(p, res.Status, err)
			return Single[T]{Status: status}, err
		}
		res.Outcome = OutcomeExecuted
	} else {
		res.Rows = make([]T, 0)
	}

	if err := p.Release(); err != nil {
		status, err := c.fail(p, res.Status, errors.WithStack(err))
		return Single[T]{Status: status}, err
	}
	c.logCall(p, res.Status)
	return res, nil
}

// CallDoubleSet executes p as a stored-procedure command and maps its two
// result sets, in order, into a []T and a []TM. The context's connection is
// opened when needed and closed once the call completes.
func CallDoubleSet[T, TM any](c *Context, p Procedure, input any, timeoutMinutes int, resetToDouble bool) (Double[T, TM], error) {
	return CallDoubleSetContext[T, TM](context.Background(), c, p, input, timeoutMinutes, resetToDouble)
}

// CallDoubleSetContext is CallDoubleSet bounded by ctx as well as by
// timeoutMinutes.
func CallDoubleSetContext[T, TM any](ctx context.Context, c *Context, p Procedure, input any, timeoutMinutes int, resetToDouble bool) (Double[T, TM], error) {
	res := Double[T, TM]{Status: Status{Binding: p.BindFrom(input), Outcome: OutcomeSkipped}}
	if resetToDouble {
		p.SetResultSetCount(2)
	}
	if p.ResultSetCount() != 2 {
		res.First, res.Second = make([]T, 0), make([]TM, 0)
		c.logCall(p, res.Status)
		return res, nil
	}

	ctx, cancel := c.withTimeout(ctx, timeoutMinutes)
	defer cancel()

	err := c.fetchOnConn(ctx, p, 2, func(r *setReader) (err error) {
		if res.First, err = readSet[T](r); err != nil {
			return err
		}
		r.advance()
		res.Second, err = readSet[TM](r)
		return err
	})
	err = multierr.Append(err, c.closeConn())
	if err != nil {
		status, err := c.fail(p, res.Status, err)
		return Double[T, TM]{Status: status}, err
	}
	res.Outcome = OutcomeExecuted
	c.logCall(p, res.Status)
	return res, nil
}

// CallTripleSet executes p as a stored-procedure command and maps its three
// result sets, in order. The context's connection is opened when needed and
// left open; Context.Close releases it.
func CallTripleSet[T, TM, TN any](c *Context, p Procedure, input any, timeoutMinutes int, resetToTriple bool) (Triple[T, TM, TN], error) {
	return CallTripleSetContext[T, TM, TN](context.Background(), c, p, input, timeoutMinutes, resetToTriple)
}

// CallTripleSetContext is CallTripleSet bounded by ctx as well as by
// timeoutMinutes.
func CallTripleSetContext[T, TM, TN any](ctx context.Context, c *Context, p Procedure, input any, timeoutMinutes int, resetToTriple bool) (Triple[T, TM, TN], error) {
	res := Triple[T, TM, TN]{Status: Status{Binding: p.BindFrom(input), Outcome: OutcomeSkipped}}
	if resetToTriple {
		p.SetResultSetCount(3)
	}
	if p.ResultSetCount() != 3 {
		res.First, res.Second, res.Third = make([]T, 0), make([]TM, 0), make([]TN, 0)
		c.logCall(p, res.Status)
		return res, nil
	}

	ctx, cancel := c.withTimeout(ctx, timeoutMinutes)
	defer cancel()

	err := c.fetchOnConn(ctx, p, 3, func(r *setReader) (err error) {
		if res.First, err = readSet[T](r); err != nil {
			return err
		}
		r.advance()
		if res.Second, err = readSet[TM](r); err != nil {
			return err
		}
		r.advance()
		res.Third, err = readSet[TN](r)
		return err
	})
	if err != nil {
		status, err := c.fail(p, res.Status, err)
		return Triple[T, TM, TN]{Status: status}, err
	}
	res.Outcome = OutcomeExecuted
	c.logCall(p, res.Status)
	return res, nil
}

// fetchOnConn runs the stored-procedure command form on the context's
// dedicated connection, opening it first when needed.
func (c *Context) fetchOnConn(ctx context.Context, p Procedure, sets int, read func(*setReader) error) error {
	conn, err := c.open(ctx)
	if err != nil {
		return err
	}
	return c.fetch(ctx, conn, p, c.dialect.ProcedureText(p.Name(), c.params(p)), sets, read)
}

// fetch executes text against q and hands the result sets to read. The
// cursor is always closed before returning.
func (c *Context) fetch(ctx context.Context, q queryer, p Procedure, text string, sets int, read func(*setReader) error) error {
	var rs resultSets
	if cq, ok := c.dialect.(cursorQuerier); ok {
		var err error
		if rs, err = cq.queryCursors(ctx, q, p.Name(), c.params(p), sets); err != nil {
			return err
		}
	} else {
		args, err := c.dialect.Args(c.params(p))
		if err != nil {
			return err
		}
		rows, err := q.QueryxContext(ctx, text, args...)
		if err != nil {
			return errors.WithStack(err)
		}
		rs = sqlxSets{rows: rows}
	}

	err := read(newSetReader(rs))
	return multierr.Append(err, errors.WithStack(rs.Close()))
}

func (c *Context) withTimeout(ctx context.Context, minutes int) (context.Context, context.CancelFunc) {
	if minutes <= 0 {
		minutes = c.defaultTimeout
	}
	if minutes <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(minutes)*time.Minute)
}

func (c *Context) fail(p Procedure, status Status, err error) (Status, error) {
	status.Outcome = OutcomeFailed
	c.logger.Warn("stored procedure failed",
		zap.String("procedure", p.Name()),
		zap.Int("resultSets", p.ResultSetCount()),
		zap.Stringer("binding", status.Binding),
		zap.Error(err))
	return status, invocationError(p.Name(), err)
}

func (c *Context) logCall(p Procedure, status Status) {
	c.logger.Debug("stored procedure call",
		zap.String("procedure", p.Name()),
		zap.Int("resultSets", p.ResultSetCount()),
		zap.Stringer("binding", status.Binding),
		zap.Stringer("outcome", status.Outcome))
}
