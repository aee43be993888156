package registry

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileIsEmpty(t *testing.T) {
	r, err := Load(filepath.Join(t.TempDir(), "registry.yaml"))
	require.NoError(t, err)
	assert.Empty(t, r.Instruments())
	assert.Empty(t, r.Bindings())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.yaml")

	r := New(path)
	r.Register(InstrumentInfo{
		Name:   "lab.ppcl550",
		Driver: "itla/ppcl55x",
		Params: map[string]string{
			"device":      "/dev/ttyUSB0",
			"initialBaud": "9600",
		},
		Lockable: true,
	})
	b := r.Bind("lab.ppcl550", "127.0.0.1", 8080)
	require.NoError(t, r.Save())

	loaded, err := Load(path)
	require.NoError(t, err)

	info, ok := loaded.Lookup("lab.ppcl550")
	require.True(t, ok)
	assert.Equal(t, "itla/ppcl55x", info.Driver)
	assert.Equal(t, "/dev/ttyUSB0", info.Params["device"])
	assert.True(t, info.Lockable)

	bindings := loaded.Bindings()
	require.Len(t, bindings, 1)
	assert.Equal(t, b.ID, bindings[0].ID)
	assert.Equal(t, 8080, bindings[0].Port)
}

func TestRegisterOverwritesSameName(t *testing.T) {
	r := New("")
	r.Register(InstrumentInfo{Name: "lab.ppcl550", Driver: "itla/ppcl55x"})
	r.Register(InstrumentInfo{Name: "lab.ppcl550", Driver: "itla/ppcl551"})

	require.Len(t, r.Instruments(), 1)
	info, _ := r.Lookup("lab.ppcl550")
	assert.Equal(t, "itla/ppcl551", info.Driver)
}

func TestBindReplacesExisting(t *testing.T) {
	r := New("")
	b1 := r.Bind("lab.ppcl550", "127.0.0.1", 8080)
	b2 := r.Bind("lab.ppcl550", "127.0.0.1", 9090)

	require.Len(t, r.Bindings(), 1)
	assert.NotEqual(t, b1.ID, b2.ID, "重新绑定应生成新的绑定ID")
	assert.Equal(t, 9090, r.Bindings()[0].Port)
}
