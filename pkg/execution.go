package pkg

import (
	"github.com/ignaciocaff/spcall"
)

// CallNoResult executes p on the default context configured with spcall.Configure.
func CallNoResult(p spcall.Procedure, input any) (spcall.Status, error) {
	c := spcall.Default()
	if c == nil {
		return spcall.Status{}, spcall.ErrNotConfigured
	}
	return spcall.CallNoResultContext(spcall.AppContext(), c, p, input)
}

// CallNoResultTimeout executes p as a stored-procedure command on the
// default context. The context's connection is left open.
func CallNoResultTimeout(p spcall.Procedure, input any, timeoutMinutes int) (spcall.Status, error) {
	c := spcall.Default()
	if c == nil {
		return spcall.Status{}, spcall.ErrNotConfigured
	}
	return spcall.CallNoResultTimeout(spcall.AppContext(), c, p, input, timeoutMinutes)
}

// CallSingleSet executes p on the default context and maps one result set.
func CallSingleSet[T any](p spcall.Procedure, input any) (spcall.Single[T], error) {
	c := spcall.Default()
	if c == nil {
		return spcall.Single[T]{}, spcall.ErrNotConfigured
	}
	return spcall.CallSingleSetContext[T](spcall.AppContext(), c, p, input, false)
}

func CallDoubleSet[T, TM any](p spcall.Procedure, input any, timeoutMinutes int) (spcall.Double[T, TM], error) {
	c := spcall.Default()
	if c == nil {
		return spcall.Double[T, TM]{}, spcall.ErrNotConfigured
	}
	return spcall.CallDoubleSetContext[T, TM](spcall.AppContext(), c, p, input, timeoutMinutes, false)
}

func CallTripleSet[T, TM, TN any](p spcall.Procedure, input any, timeoutMinutes int) (spcall.Triple[T, TM, TN], error) {
	c := spcall.Default()
	if c == nil {
		return spcall.Triple[T, TM, TN]{}, spcall.ErrNotConfigured
	}
	return spcall.CallTripleSetContext[T, TM, TN](spcall.AppContext(), c, p, input, timeoutMinutes, false)
}
