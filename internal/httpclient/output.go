package httpclient

import (
	"io"
	"net/http"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// WriteBody streams a response body to dst. With progress enabled and a
// known Content-Length, a bar tracks the transfer; otherwise the body
// is copied silently.
func WriteBody(resp *http.Response, dst io.Writer, progress bool, label string) (int64, error) {
	defer resp.Body.Close()

	if !progress || resp.ContentLength <= 0 {
		return io.Copy(dst, resp.Body)
	}

	p := mpb.New(mpb.WithWidth(64))
	barStyle := mpb.BarStyle().Lbound("╢").Filler("█").Tip("█").Padding("░").Rbound("╟")
	bar := p.New(resp.ContentLength,
		barStyle,
		mpb.PrependDecorators(
			decor.Name(label, decor.WC{W: len(label) + 1, C: decor.DindentRight}),
			decor.OnComplete(
				decor.EwmaETA(decor.ET_STYLE_GO, 30, decor.WC{W: 4}), "Complete",
			),
		),
		mpb.AppendDecorators(
			decor.EwmaSpeed(decor.SizeB1024(0), "% .2f", 30),
		),
	)
	bar.EnableTriggerComplete()

	reader := bar.ProxyReader(resp.Body)
	defer reader.Close()
	n, err := io.Copy(dst, reader)
	if err != nil {
		bar.Abort(false)
	}
	p.Wait()
	return n, err
}
