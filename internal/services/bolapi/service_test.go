package bolapi

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcftrading/reportfetch/internal/common"
)

func TestFetchAndDownloadInvoices(t *testing.T) {
	ts := newTestServer(t, 0)

	dir := t.TempDir()
	w := &Workflow{
		cfg:    common.BolAPIConfig{BaseURL: ts.URL, TokenURL: ts.URL + "/token"},
		dir:    dir,
		logger: common.GetLogger(),
		now: func() time.Time {
			return time.Date(2025, time.July, 15, 0, 0, 0, 0, time.UTC)
		},
	}

	client := newTestClient(ts)
	files, err := w.FetchAndDownloadInvoices(context.Background(), client, "Account1")
	require.NoError(t, err)
	require.Len(t, files, 1)

	want := filepath.Join(dir, "Bol.com - Account1 - 2025-06-01_to_2025-06-30 - factuur-specificatie.xlsx")
	assert.Equal(t, want, files[0])

	data, err := os.ReadFile(want)
	require.NoError(t, err)
	assert.Equal(t, []byte("spreadsheet-bytes"), data)
}
