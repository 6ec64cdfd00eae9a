package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const demoManifest = `
environment: demo-host
values:
  identity.version: "2.1"
functions:
  cache.invalidate: {}
  crypt.hash:
    note: sha256 only
  debug.getinfo:
    error: not implemented
`

const passingCatalog = `
probes:
  - name: cache.invalidate
    check: invoke
  - name: crypt.hash
    check: invoke
    expect_note: sha256 only
  - name: identity.version
    check: present
  - name: crypt.random
`

const failingCatalog = `
environment: catalog-host
probes:
  - name: cache.invalidate
    aliases: [cache_invalidate]
    check: invoke
  - name: debug.getinfo
    dependencies: [debug.setinfo, identity.version]
    check: invoke
  - name: debug.setinfo
    check: invoke
`

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// execute runs cmd with args and returns stdout, stderr and the error.
func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	buf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), errBuf.String(), err
}
