package docmap

import (
	"fmt"
	"os"

	"github.com/alnah/go-docmap/internal/fileutil"
)

// dispatch routes the assembled PDF according to the request's action.
// ActionBinary hands the bytes back with their MIME type; ActionSave
// writes them to the request's output path.
func dispatch(req Request, pdf []byte, pages int, markers []string) (*Result, error) {
	res := &Result{Pages: pages, FailedBlocks: markers}

	switch req.Action {
	case ActionBinary:
		res.PDF = pdf
		res.MIME = PDFMimeType
		return res, nil

	case ActionSave:
		if err := fileutil.EnsureParentDir(req.OutputPath); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrWriteOutput, err)
		}
		// #nosec G306 -- PDF output files are intended to be readable
		if err := os.WriteFile(req.OutputPath, pdf, fileutil.FilePermissions); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrWriteOutput, err)
		}
		res.Path = req.OutputPath
		return res, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidAction, req.Action)
	}
}
