package watch

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderStream(t *testing.T) {
	input := strings.Join([]string{
		`VSCODE_PYTEST_UPDATE:{"nodeid":"pkg::TestA","file":"pkg","status":"running"}`,
		`=== RUN   TestA`,
		`VSCODE_PYTEST_UPDATE:{"nodeid":"pkg::TestA","file":"pkg","status":"failed","duration":0.5,"message":"boom","when":"call"}`,
		`VSCODE_PYTEST_UPDATE:{not json`,
		`ok  	example.com/mod	0.1s`,
	}, "\n")

	var buf bytes.Buffer
	err := RenderStream(context.Background(), log.NewLogger(log.DiscardHandler()), strings.NewReader(input), NewRenderer(&buf, WithNoColor(true)))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"… pkg::TestA",
		"=== RUN   TestA",
		"✗ pkg::TestA - boom",
		`VSCODE_PYTEST_UPDATE:{not json`,
		"ok  \texample.com/mod\t0.1s",
	}, strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n"))
}

func TestRenderStream_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var buf bytes.Buffer
	require.NoError(t, RenderStream(ctx, log.NewLogger(log.DiscardHandler()), strings.NewReader("line\n"), NewRenderer(&buf)))
	assert.Empty(t, buf.String())
}
