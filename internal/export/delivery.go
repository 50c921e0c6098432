package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
)

// ContentType is the MIME type of the archive.
const ContentType = "application/zip"

// Send streams the archive to w and then closes the download. Cleanup
// runs whether the copy succeeds, fails, or is cancelled; the export is
// only marked done when both the copy and the cleanup succeed.
func (d *Download) Send(ctx context.Context, w io.Writer) error {
	if d.file == nil {
		d.Close()
		return ioErr(StageDelivering, "send", d.Name, fmt.Errorf("archive is not open"))
	}

	ctx, cancel := context.WithDeadline(ctx, d.deadline)
	defer cancel()

	n, err := io.Copy(w, &ctxReader{ctx: ctx, r: d.file})
	if err == nil && n != d.Size {
		err = fmt.Errorf("sent %d of %d bytes", n, d.Size)
	}
	if err != nil {
		if cerr := ctx.Err(); cerr == nil || !errors.Is(err, cerr) {
			err = ioErr(StageDelivering, "send", d.Name, err)
		}
		return d.abort(err)
	}

	if err := d.finish(outcomeDone); err != nil {
		return err
	}
	return nil
}

// Deliver writes the download as an HTTP attachment and cleans it up.
// Headers are committed before the first byte is sent, so a failure
// during the copy can only be logged by the caller.
func Deliver(ctx context.Context, w http.ResponseWriter, d *Download) error {
	h := w.Header()
	h.Set("Content-Type", ContentType)
	h.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, d.Name))
	h.Set("Content-Length", strconv.FormatInt(d.Size, 10))
	h.Set("Cache-Control", "no-store")
	h.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	return d.Send(ctx, w)
}

// ctxReader stops a copy as soon as its context is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}
