package detection

import (
	"context"
	"image"
	"sync"

	"github.com/ironsheep/bento-measure-mcp/internal/imaging"
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

var (
	ortInitialized bool
	ortMutex       sync.Mutex
)

// ONNXOptions configures the ONNX Runtime YOLOv8 detector.
type ONNXOptions struct {
	// ModelPath is the exported .onnx file.
	ModelPath string
	// LibraryPath points at the onnxruntime shared library. Empty uses the
	// platform default lookup.
	LibraryPath string
	// InputSize is the square network input edge in pixels.
	InputSize int
	// Features and Anchors describe the [1, Features, Anchors] output tensor:
	// 4 box coordinates plus one score per class, for every anchor.
	Features int
	Anchors  int
	// ClassID restricts scoring to a single class; negative uses the best
	// class per anchor.
	ClassID int
	// IoUThreshold is the non-maximum suppression overlap limit.
	IoUThreshold float64
	// Threads caps intra-op parallelism; 0 keeps the runtime default.
	Threads int
}

// DefaultONNXOptions matches a stock YOLOv8 export at 640x640.
func DefaultONNXOptions() ONNXOptions {
	return ONNXOptions{
		InputSize:    640,
		Features:     84,
		Anchors:      8400,
		ClassID:      -1,
		IoUThreshold: 0.4,
	}
}

// ONNX runs a YOLOv8 model through ONNX Runtime.
//
// One session is shared by all callers; Run is serialized by a mutex so the
// detector is safe for concurrent use.
type ONNX struct {
	opts    ONNXOptions
	mu      sync.Mutex
	session *ort.DynamicAdvancedSession
}

// NewONNX loads the model and prepares a session.
func NewONNX(opts ONNXOptions) (*ONNX, error) {
	if opts.ModelPath == "" {
		return nil, errors.Wrap(ErrDetectorUnavailable, "no model path configured")
	}
	if opts.InputSize <= 0 || opts.Features < 5 || opts.Anchors <= 0 {
		return nil, errors.Errorf("invalid model geometry: input %d, output [1,%d,%d]", opts.InputSize, opts.Features, opts.Anchors)
	}

	if opts.LibraryPath != "" {
		ort.SetSharedLibraryPath(opts.LibraryPath)
	}

	ortMutex.Lock()
	defer ortMutex.Unlock()

	if !ortInitialized {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, errors.Wrap(err, "failed to initialize onnxruntime")
		}
		ortInitialized = true
	}

	sessionOptions, err := ort.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create session options")
	}
	defer sessionOptions.Destroy()

	if opts.Threads > 0 {
		if err := sessionOptions.SetIntraOpNumThreads(opts.Threads); err != nil {
			return nil, errors.Wrap(err, "failed to set thread count")
		}
	}

	session, err := ort.NewDynamicAdvancedSession(opts.ModelPath,
		[]string{"images"}, []string{"output0"}, sessionOptions)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load model %s", opts.ModelPath)
	}

	return &ONNX{opts: opts, session: session}, nil
}

// Detect runs inference and returns NMS-filtered candidates scored at least
// threshold, rescaled to the source image.
func (d *ONNX) Detect(ctx context.Context, img image.Image, threshold float64) ([]Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	size := d.opts.InputSize
	input := preprocess(img, size)

	inputTensor, err := ort.NewTensor(ort.NewShape(1, 3, int64(size), int64(size)), input)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create input tensor")
	}
	defer inputTensor.Destroy()

	output := make([]float32, d.opts.Features*d.opts.Anchors)
	outputTensor, err := ort.NewTensor(ort.NewShape(1, int64(d.opts.Features), int64(d.opts.Anchors)), output)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create output tensor")
	}
	defer outputTensor.Destroy()

	d.mu.Lock()
	err = d.session.Run([]ort.Value{inputTensor}, []ort.Value{outputTensor})
	d.mu.Unlock()
	if err != nil {
		return nil, errors.Wrap(err, "failed to run inference")
	}

	bounds := img.Bounds()
	raw := parseYOLO(outputTensor.GetData(), d.opts.Features, d.opts.Anchors, d.opts.ClassID, threshold)
	raw = nonMaxSuppression(raw, d.opts.IoUThreshold)

	scaleX := float64(bounds.Dx()) / float64(size)
	scaleY := float64(bounds.Dy()) / float64(size)
	candidates := make([]Candidate, 0, len(raw))
	for _, r := range raw {
		r.x1 *= scaleX
		r.x2 *= scaleX
		r.y1 *= scaleY
		r.y2 *= scaleY
		if c, ok := toCandidate(r, bounds); ok {
			candidates = append(candidates, c)
		}
	}
	return candidates, nil
}

// Close releases the session.
func (d *ONNX) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session == nil {
		return nil
	}
	err := d.session.Destroy()
	d.session = nil
	return err
}

// preprocess stretches img to size x size and lays it out as normalized CHW
// float32 RGB.
func preprocess(img image.Image, size int) []float32 {
	resized := imaging.ResizeExact(img, size, size)
	plane := size * size
	data := make([]float32, 3*plane)

	for y := 0; y < size; y++ {
		row := resized.Pix[y*resized.Stride:]
		for x := 0; x < size; x++ {
			data[y*size+x] = float32(row[x*4]) / 255
			data[plane+y*size+x] = float32(row[x*4+1]) / 255
			data[2*plane+y*size+x] = float32(row[x*4+2]) / 255
		}
	}
	return data
}

// parseYOLO decodes a [1, features, anchors] YOLOv8 head into corner boxes in
// network input coordinates.
func parseYOLO(out []float32, features, anchors, classID int, threshold float64) []rawBox {
	classes := features - 4
	if len(out) < features*anchors || classes <= 0 {
		return nil
	}

	boxes := make([]rawBox, 0)
	for i := 0; i < anchors; i++ {
		var score float32
		if classID >= 0 && classID < classes {
			score = out[(4+classID)*anchors+i]
		} else {
			for c := 0; c < classes; c++ {
				if s := out[(4+c)*anchors+i]; s > score {
					score = s
				}
			}
		}
		if float64(score) < threshold {
			continue
		}

		cx := float64(out[i])
		cy := float64(out[anchors+i])
		w := float64(out[2*anchors+i])
		h := float64(out[3*anchors+i])
		boxes = append(boxes, rawBox{
			x1:    cx - w/2,
			y1:    cy - h/2,
			x2:    cx + w/2,
			y2:    cy + h/2,
			score: float64(score),
		})
	}
	return boxes
}
