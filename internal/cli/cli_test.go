package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"admin-dashboard/internal/models"
	"admin-dashboard/internal/services"
	"admin-dashboard/internal/stubapi"
)

type cliHarness struct {
	t           *testing.T
	usersURL    string
	productsURL string
}

func newCLIHarness(t *testing.T) *cliHarness {
	t.Helper()
	users := httptest.NewServer(stubapi.NewUsersHandler())
	t.Cleanup(users.Close)
	products := httptest.NewServer(stubapi.NewProductsHandler())
	t.Cleanup(products.Close)
	return &cliHarness{t: t, usersURL: users.URL, productsURL: products.URL}
}

func (h *cliHarness) run(args ...string) (string, string, error) {
	h.t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{
		"--users-url", h.usersURL,
		"--products-url", h.productsURL,
		"--log-level", "error",
	}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestUsersCommands(t *testing.T) {
	t.Parallel()

	h := newCLIHarness(t)

	out, _, err := h.run("users", "list")
	require.NoError(t, err)
	assert.Equal(t, "No users registered\n", out)

	out, _, err = h.run("users", "add", "--name", "Ada", "--email", "ada@x.com")
	require.NoError(t, err)
	assert.Contains(t, out, "User created successfully")

	out, _, err = h.run("users", "edit", "1", "--email", "ada@lovelace.org")
	require.NoError(t, err)
	assert.Contains(t, out, "User updated successfully")

	out, _, err = h.run("users", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "EMAIL")
	assert.Contains(t, out, "ada@lovelace.org")
	assert.Contains(t, out, "Ada")

	out, _, err = h.run("users", "delete", "1", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "User deleted successfully")

	out, _, err = h.run("users", "list")
	require.NoError(t, err)
	assert.Equal(t, "No users registered\n", out)
}

func TestAddWithEmptyFieldIsRejected(t *testing.T) {
	t.Parallel()

	h := newCLIHarness(t)
	_, errOut, err := h.run("users", "add", "--name", "Ada", "--email", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrRequiredField)
	assert.ErrorAs(t, err, &reportedError{})
	assert.Contains(t, errOut, "all fields are required")

	out, _, err := h.run("users", "list")
	require.NoError(t, err)
	assert.Equal(t, "No users registered\n", out)
}

func TestProductsCommands(t *testing.T) {
	t.Parallel()

	h := newCLIHarness(t)
	out, _, err := h.run("products", "add", "--name", "Widget", "--price", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "Product created successfully")

	sc := services.NewClient[models.Product](models.ProductSchema, h.productsURL, nil)
	products, err := sc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	id := string(products[0].ID)

	_, _, err = h.run("products", "edit", id, "--price", "7.5")
	require.NoError(t, err)

	out, _, err = h.run("products", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "$7.50")
	assert.Contains(t, out, "Widget")
	assert.Contains(t, out, id)
}

func TestNegativePriceIsRejected(t *testing.T) {
	t.Parallel()

	h := newCLIHarness(t)
	_, errOut, err := h.run("products", "add", "--name", "Widget", "--price", "-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidNumber)
	assert.Contains(t, errOut, "Price must be a non-negative number")
}

func TestEditUnknownRecord(t *testing.T) {
	t.Parallel()

	h := newCLIHarness(t)
	_, _, err := h.run("users", "edit", "9", "--name", "Nobody")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record is not in the current list")
}

func TestUnreachableUpstreamIsReported(t *testing.T) {
	t.Parallel()

	h := newCLIHarness(t)
	h.usersURL = "http://127.0.0.1:1"
	_, errOut, err := h.run("users", "list")
	require.Error(t, err)
	assert.ErrorAs(t, err, &reportedError{})
	assert.Contains(t, errOut, "Error loading users:")
}
