package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "qlty.dev/pkg/qlty/internal/model"
)

func noop() TestCase {
	return TestFunc(func(*T) {})
}

func TestCatalog_Add(t *testing.T) {
	tests := []struct {
		name    string
		entry   Entry
		wantErr bool
	}{
		{name: "valid", entry: Entry{Class: "Login", Method: "test_ok", New: noop}},
		{name: "missing class", entry: Entry{Method: "test_ok", New: noop}, wantErr: true},
		{name: "missing method", entry: Entry{Class: "Login", New: noop}, wantErr: true},
		{name: "missing factory", entry: Entry{Class: "Login", Method: "test_ok"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCatalog()

			err := c.Add(tt.entry)
			if tt.wantErr {
				require.Error(t, err)
				assert.Zero(t, c.Len())

				return
			}

			require.NoError(t, err)
			assert.Equal(t, m.TargetUI, c.Entries()[0].Target)
		})
	}
}

func TestCatalog_Duplicate(t *testing.T) {
	c := NewCatalog().MustAdd(Entry{Class: "Login", Method: "test_ok", New: noop})

	err := c.Add(Entry{Class: "Login", Method: "test_ok", New: noop})
	require.ErrorIs(t, err, ErrDuplicateTestID)

	assert.Panics(t, func() {
		c.MustAdd(Entry{Class: "Login", Method: "test_ok", New: noop})
	})
}

func TestCatalog_Select(t *testing.T) {
	c := NewCatalog().MustAdd(
		Entry{Class: "Login", Method: "test_ok", New: noop},
		Entry{Class: "Login", Method: "test_bad", New: noop},
		Entry{Class: "Api", Method: "test_health", Target: m.TargetAPI, New: noop},
	)

	all, err := c.Select("")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, m.TestID("Login.test_ok"), all[0].ID())
	assert.Equal(t, m.TestID("Api.test_health"), all[2].ID())

	one, err := c.Select(" Login.test_bad ")
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, m.TestID("Login.test_bad"), one[0].ID())

	_, err = c.Select("Login")
	require.ErrorIs(t, err, ErrTestNotFound)
}

func TestEntry_Platforms(t *testing.T) {
	anywhere := Entry{Class: "A", Method: "b"}
	assert.True(t, anywhere.Supports(m.PlatformIOS))

	android := Entry{Class: "A", Method: "b", Platforms: []m.Platform{m.PlatformAndroid}, CaseIDs: []string{"C1"}}
	assert.True(t, android.Supports(m.PlatformAndroid))
	assert.False(t, android.Supports(m.PlatformIOS))
	assert.Equal(t, "android test cases only, skipping on ios", android.SkipReason(m.PlatformIOS))

	d := android.Descriptor()
	assert.Equal(t, m.TestID("A.b"), d.ID)
	assert.Equal(t, []string{"C1"}, d.CaseIDs)
	assert.Equal(t, []m.Platform{m.PlatformAndroid}, d.Platforms)
}
