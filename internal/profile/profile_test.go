package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProfile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeProfile(t, t.TempDir(), "mybank.toml", `
account = "My Checking"
date_col = 0
desc_col = 1
amount_col = 2
`)
	p, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "mybank", p.Name, "name defaults to the file name")
	assert.Equal(t, ",", p.Delimiter)
	assert.Equal(t, "2006-01-02", p.DateFormat)
	assert.Equal(t, -1, p.PayeeCol)
	assert.Empty(t, p.Encoding)
}

func TestLoadFullProfile(t *testing.T) {
	path := writeProfile(t, t.TempDir(), "de-bank.toml", `
name = "de-bank"
account = "Giro"
delimiter = ";"
has_header = true
date_format = "02.01.2006"
date_col = 1
desc_col = 4
amount_col = 7
payee_col = 3
decimal_comma = true
amount_strip = "€"
currency = "EUR"
encoding = "windows-1252"
`)
	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ";", p.Delimiter)
	assert.True(t, p.DecimalComma)
	assert.Equal(t, 3, p.PayeeCol)
	assert.Equal(t, "windows-1252", p.Encoding)
}

func TestLoadRejectsMissingAccount(t *testing.T) {
	path := writeProfile(t, t.TempDir(), "bad.toml", `
date_col = 0
desc_col = 1
amount_col = 2
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "account is required")
}

func TestValidateRejectsMultiCharDelimiter(t *testing.T) {
	p := Profile{Name: "x", Account: "a", Delimiter: ";;"}
	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delimiter")
}

func TestRegistryLookupIsCaseInsensitive(t *testing.T) {
	r := NewRegistry()
	r.Register(Profile{Name: "MyBank", Account: "a"})

	p, ok := r.Get(" mybank ")
	require.True(t, ok)
	assert.Equal(t, "MyBank", p.Name)

	_, ok = r.Get("other")
	assert.False(t, ok)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "a.toml", "account = \"A\"\ndate_col = 0\ndesc_col = 1\namount_col = 2\n")
	writeProfile(t, dir, "b.toml", "account = \"B\"\ndate_col = 0\ndesc_col = 1\namount_col = 2\n")
	writeProfile(t, dir, "notes.txt", "ignored")

	r, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, r.Names())
}

func TestLoadDirMissingIsEmpty(t *testing.T) {
	r, err := LoadDir(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, r.Names())
}
