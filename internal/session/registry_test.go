package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triagemd/pkg"
)

func TestRegistryCreateAndDo(t *testing.T) {
	reg := NewRegistry(time.Hour)
	id := reg.Create(pkg.Demographics{Sex: "Female", Age: "29"})

	err := reg.Do(id, func(st *State) error {
		require.NotNil(t, st.Session)
		assert.Equal(t, id, st.Session.ID)
		assert.Equal(t, "Female", st.Session.Demographics.Sex)
		assert.False(t, st.Session.Retrieved())
		return nil
	})
	require.NoError(t, err)
}

func TestRegistryUnknownSession(t *testing.T) {
	reg := NewRegistry(time.Hour)
	err := reg.Do("nope", func(*State) error { return nil })
	assert.ErrorIs(t, err, ErrUnknown)
}

func TestRegistrySerializesSameSession(t *testing.T) {
	reg := NewRegistry(time.Hour)
	id := reg.Create(pkg.Demographics{})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = reg.Do(id, func(st *State) error {
				// Unsynchronized inside fn; the registry's per-session lock
				// is what keeps this correct.
				st.Messages++
				return nil
			})
		}()
	}
	wg.Wait()

	err := reg.Do(id, func(st *State) error {
		assert.Equal(t, 50, st.Messages)
		return nil
	})
	require.NoError(t, err)
}
