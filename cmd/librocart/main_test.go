package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = `[
	{"id": 1, "titulo": "Rayuela", "autor": "Julio Cortázar", "genero": "Novela", "precio": 18500, "stock": 2},
	{"id": 2, "titulo": "Ficciones", "autor": "Jorge Luis Borges", "genero": "Cuentos", "precio": 12000, "stock": 1}
]`

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "libros.json")
	require.NoError(t, os.WriteFile(catalogPath, []byte(fixture), 0o644))

	t.Setenv("LIBROCART_CATALOG_SOURCE", catalogPath)
	t.Setenv("LIBROCART_STORAGE_BACKEND", "file")
	t.Setenv("LIBROCART_STORAGE_PATH", filepath.Join(dir, "state.json"))
	t.Setenv("LIBROCART_LOG_LEVEL", "error")
	return dir
}

func run(t *testing.T, dir, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out, strings.NewReader(stdin))
	cmd.SetArgs(append(args, "--env-file", filepath.Join(dir, "missing.env")))
	err := cmd.Execute()
	return out.String(), err
}

func TestCLI_List(t *testing.T) {
	dir := setupEnv(t)

	out, err := run(t, dir, "", "list", "--sort", "price-asc")
	require.NoError(t, err)
	assert.Less(t, strings.Index(out, "Ficciones"), strings.Index(out, "Rayuela"))
	assert.Contains(t, out, "18.500")
	assert.Contains(t, out, "2 results")

	out, err = run(t, dir, "", "genres")
	require.NoError(t, err)
	assert.Equal(t, "Cuentos\nNovela\n", out)
}

func TestCLI_CartSurvivesReload(t *testing.T) {
	dir := setupEnv(t)

	out, err := run(t, dir, "", "cart", "add", "1")
	require.NoError(t, err)
	assert.Contains(t, out, `Added "Rayuela" (1 in cart)`)

	out, err = run(t, dir, "", "cart", "set", "1", "9")
	require.NoError(t, err)
	assert.Contains(t, out, "quantity set to 2")

	_, err = run(t, dir, "", "cart", "add", "1")
	assert.Error(t, err)

	out, err = run(t, dir, "", "list", "-q", "rayuela")
	require.NoError(t, err)
	assert.Contains(t, out, "1 results")

	out, err = run(t, dir, "", "cart", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "37.000")
	assert.Contains(t, out, "2.500")
	assert.Contains(t, out, "39.500")
}

func TestCLI_ClearAsksForConfirmation(t *testing.T) {
	dir := setupEnv(t)
	_, err := run(t, dir, "", "cart", "add", "2")
	require.NoError(t, err)

	out, err := run(t, dir, "n\n", "cart", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Empty the cart? [y/N]")
	assert.Contains(t, out, "Ficciones")

	out, err = run(t, dir, "", "cart", "clear", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Cart emptied")
	assert.Contains(t, out, "Cart is empty")
}

func TestCLI_MissingCatalogFails(t *testing.T) {
	dir := setupEnv(t)
	t.Setenv("LIBROCART_CATALOG_SOURCE", filepath.Join(dir, "nope.json"))

	_, err := run(t, dir, "", "list")
	assert.Error(t, err)
}
