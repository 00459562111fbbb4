package navigation

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecorder_FirstRedirectWins(t *testing.T) {
	r := NewRecorder()
	_, ok := r.Pending()
	assert.False(t, ok)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Redirect(context.Background(), "/login", true)
		}()
	}
	wg.Wait()
	r.Redirect(context.Background(), "/", false)

	got, ok := r.Pending()
	assert.True(t, ok)
	assert.Equal(t, Redirect{To: "/login", Replace: true}, got)
}

func TestFunc(t *testing.T) {
	var to string
	var nav Navigator = Func(func(_ context.Context, dest string, _ bool) { to = dest })
	nav.Redirect(context.Background(), "/login", true)
	assert.Equal(t, "/login", to)
}
