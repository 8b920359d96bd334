package guards

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanNoMocks_FindsJSMock(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "tests"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "tests", "a.test.ts"),
		[]byte("vi.mock('./thing')\nconst x = 1\n"), 0644))

	findings, err := ScanNoMocks(root, []string{"tests"})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "vi.mock", findings[0].Rule)
}

func TestScanNoMocks_SkipsNodeModules(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "tests", "node_modules"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "tests", "node_modules", "x.test.ts"),
		[]byte("jest.mock('x')\n"), 0644))

	findings, err := ScanNoMocks(root, []string{"tests"})
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestScanNoPlaceholders_FindsTODO(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "a.go"),
		[]byte("// TODO: implement\nfunc f() {}\n"), 0644))

	findings, err := ScanNoPlaceholders(root, []string{"src"})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "TODO", findings[0].Token)
}
