package crypto

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadMasterKeyFromHexAndFile(t *testing.T) {
	hexKey := GenerateMasterKey()
	key, err := ReadMasterKey(hexKey, "")
	require.NoError(t, err)
	require.Len(t, key, MasterKeySize)

	path := filepath.Join(t.TempDir(), "master.key")
	require.NoError(t, os.WriteFile(path, []byte(hexKey+"\n"), 0o600))
	fromFile, err := ReadMasterKey("", path)
	require.NoError(t, err)
	require.Equal(t, key, fromFile)
}

func TestReadMasterKeyErrors(t *testing.T) {
	_, err := ReadMasterKey("", "")
	require.True(t, errors.Is(err, ErrNoMasterKey))

	_, err = ReadMasterKey("", filepath.Join(t.TempDir(), "absent.key"))
	require.True(t, errors.Is(err, ErrNoMasterKey))

	_, err = ReadMasterKey("abcd", "")
	require.True(t, errors.Is(err, ErrInvalidKeyLength))

	_, err = ReadMasterKey("zz", "")
	require.Error(t, err)
}

func TestDeriveSessionKeys(t *testing.T) {
	master := MustRandom(MasterKeySize)
	a, err := DeriveSessionKeys(master)
	require.NoError(t, err)
	b, err := DeriveSessionKeys(master)
	require.NoError(t, err)

	require.Len(t, a.Hash, 64)
	require.Len(t, a.Block, 32)
	require.Equal(t, a, b)
	require.False(t, bytes.Equal(a.Hash[:32], a.Block))

	_, err = DeriveSessionKeys([]byte("short"))
	require.True(t, errors.Is(err, ErrInvalidKeyLength))
}
