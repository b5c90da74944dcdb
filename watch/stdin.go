package watch

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-reporter/reporting"
)

// RenderStream renders the tagged status lines of r and passes every other
// line through unchanged
func RenderStream(ctx context.Context, lgr log.Logger, r io.Reader, renderer *Renderer) error {
	reader := bufio.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			line = strings.TrimRight(line, "\r\n")
			update, tagged, perr := reporting.ParseUpdateLine([]byte(line))
			switch {
			case perr != nil:
				lgr.Debug("Invalid status line", "err", perr)
				renderer.Line(line)
			case tagged:
				renderer.Update(update)
			default:
				renderer.Line(line)
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
	}
}
