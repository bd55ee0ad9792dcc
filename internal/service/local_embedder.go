package service

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os/exec"
	"strconv"
	"sync"
)

// encoderScript is a long-lived worker: it loads the tokenizer/encoder once,
// then answers one JSON request per stdin line with one JSON response line.
const encoderScript = `
import json, sys
import torch
from transformers import AutoTokenizer, AutoModel

model_name, requested, pooling, max_length = sys.argv[1], sys.argv[2], sys.argv[3], int(sys.argv[4])

def pick_device(name):
    if name == "mps" and torch.backends.mps.is_available():
        return "mps"
    if name.startswith("cuda") and torch.cuda.is_available():
        return name
    if name != "cpu":
        print(f"device {name} unavailable, falling back to cpu", file=sys.stderr)
    return "cpu"

device = pick_device(requested)
tokenizer = AutoTokenizer.from_pretrained(model_name)
model = AutoModel.from_pretrained(model_name).to(device)
model.eval()

kwargs = {"padding": True, "truncation": True, "return_tensors": "pt"}
if max_length > 0:
    kwargs["max_length"] = max_length

for line in sys.stdin:
    try:
        texts = json.loads(line)["texts"]
        encoded = tokenizer(texts, **kwargs)
        encoded = {k: v.to(device) for k, v in encoded.items()}
        with torch.no_grad():
            hidden = model(**encoded).last_hidden_state
        if pooling == "mean":
            mask = encoded["attention_mask"].unsqueeze(-1).to(hidden.dtype)
            pooled = (hidden * mask).sum(1) / mask.sum(1).clamp(min=1e-9)
        else:
            pooled = hidden[:, 0]
        resp = {"device": device, "embeddings": pooled.detach().cpu().tolist()}
    except Exception as e:
        resp = {"error": str(e)}
    sys.stdout.write(json.dumps(resp) + "\n")
    sys.stdout.flush()
`

// LocalEmbedderOptions configures the local transformer encoder.
type LocalEmbedderOptions struct {
	PythonBin    string // interpreter with torch + transformers installed
	Model        string // Hugging Face model id
	Device       string // "mps", "cuda", "cuda:1", "cpu"; unavailable accelerators fall back to cpu
	Pooling      string // "cls" (first token) or "mean"
	MaxSeqLength int    // 0 means the tokenizer's model maximum
}

// LocalEmbedder runs a pretrained Hugging Face tokenizer/encoder in a Python
// worker process. Texts are padded and truncated, the last hidden state is
// pooled (first token by default) and returned as host-memory floats.
type LocalEmbedder struct {
	opts LocalEmbedderOptions

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	stderr bytes.Buffer
	device string
}

type encodeRequest struct {
	Texts []string `json:"texts"`
}

type encodeResponse struct {
	Device     string      `json:"device"`
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error"`
}

// NewLocalEmbedder creates a new embedder using a local model. The worker
// process starts on first use.
func NewLocalEmbedder(opts LocalEmbedderOptions) (*LocalEmbedder, error) {
	if opts.Model == "" {
		return nil, fmt.Errorf("local embedder: model is required")
	}
	if opts.PythonBin == "" {
		opts.PythonBin = "python3"
	}
	if opts.Device == "" {
		opts.Device = "cpu"
	}
	switch opts.Pooling {
	case "":
		opts.Pooling = "cls"
	case "cls", "mean":
	default:
		return nil, fmt.Errorf("local embedder: invalid pooling: %s", opts.Pooling)
	}
	return &LocalEmbedder{opts: opts}, nil
}

// Model returns the Hugging Face model id plus pooling, since both shape the vector.
func (l *LocalEmbedder) Model() string {
	return l.opts.Model + "#" + l.opts.Pooling
}

// Device is the device the worker actually runs on; empty before first use.
func (l *LocalEmbedder) Device() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.device
}

// Embed generates an embedding vector for a single input text.
func (l *LocalEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := l.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch sends texts to the worker as one padded batch.
func (l *LocalEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.start(); err != nil {
		return nil, err
	}

	req, err := json.Marshal(encodeRequest{Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	if _, err := l.stdin.Write(append(req, '\n')); err != nil {
		return nil, l.workerError("write request", err)
	}
	line, err := l.stdout.ReadBytes('\n')
	if err != nil {
		return nil, l.workerError("read response", err)
	}

	var resp encodeResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse embedding response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("failed to generate embedding: %s", resp.Error)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("encoder returned %d vectors for %d texts", len(resp.Embeddings), len(texts))
	}
	if l.device == "" {
		l.device = resp.Device
		if resp.Device != l.opts.Device {
			log.Printf("[LocalEmbedder] requested device %s unavailable, using %s", l.opts.Device, resp.Device)
		} else {
			log.Printf("[LocalEmbedder] running %s on %s", l.opts.Model, resp.Device)
		}
	}
	return resp.Embeddings, nil
}

// start launches the worker if it is not running. Callers hold l.mu.
func (l *LocalEmbedder) start() error {
	if l.cmd != nil {
		return nil
	}
	cmd := exec.Command(l.opts.PythonBin, "-c", encoderScript,
		l.opts.Model, l.opts.Device, l.opts.Pooling, strconv.Itoa(l.opts.MaxSeqLength))
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to open encoder stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open encoder stdout: %w", err)
	}
	l.stderr.Reset()
	cmd.Stderr = &l.stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start encoder %s: %w", l.opts.PythonBin, err)
	}
	log.Printf("[LocalEmbedder] started encoder worker for %s (pid %d)", l.opts.Model, cmd.Process.Pid)
	l.cmd = cmd
	l.stdin = stdin
	l.stdout = bufio.NewReaderSize(stdout, 1<<20)
	return nil
}

// workerError tears the worker down and reports its stderr.
func (l *LocalEmbedder) workerError(op string, err error) error {
	_ = l.stop()
	return fmt.Errorf("encoder worker %s: %w (stderr: %s)", op, err, l.stderr.String())
}

func (l *LocalEmbedder) stop() error {
	if l.cmd == nil {
		return nil
	}
	_ = l.stdin.Close()
	err := l.cmd.Wait()
	l.cmd, l.stdin, l.stdout = nil, nil, nil
	return err
}

// Close stops the worker process.
func (l *LocalEmbedder) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stop()
}
