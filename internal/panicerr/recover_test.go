package panicerr_test

import (
	"errors"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/gopost/internal/panicerr"
)

func Test_Recover(t *testing.T) {
	boom := errors.New("boom")

	require.NoError(t, panicerr.Recover("ok", func() error { return nil }))
	assert.Equal(t, boom, panicerr.Recover("err", func() error { return boom }))

	err := panicerr.Recover("panic", func() error { panic(boom) })
	require.Error(t, err)
	assert.True(t, panicerr.IsPanic(err))
	assert.True(t, errors.Is(err, boom), "must unwrap to the panic value")
	assert.NotEmpty(t, panicerr.PanicStack(err))
	assert.Equal(t, "panic paniced: boom", err.Error())

	err = panicerr.Recover("exit", func() error {
		runtime.Goexit()
		return nil
	})
	assert.True(t, panicerr.IsExit(err))
	assert.Equal(t, "exit called runtime.Goexit", err.Error())
}

func Test_Guard(t *testing.T) {
	require.NoError(t, panicerr.Guard("ok", func() error { return nil }))

	err := panicerr.Guard("step", func() error {
		var xs []int
		_ = xs[3]
		return nil
	})
	require.Error(t, err)
	assert.True(t, panicerr.IsPanic(err))
	var re runtime.Error
	assert.True(t, errors.As(err, &re), "must unwrap to the runtime error")
}
