package embedding

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const hiddenStateOutput = "last_hidden_state"

// BERTEncoder tokenizes locally and runs a BERT-style model on an inference
// server speaking the KServe v2 (Open Inference) protocol. The query vector is
// the hidden state of the first ([CLS]) position.
type BERTEncoder struct {
	baseURL   string
	model     string
	dimension int
	tokenizer *WordPiece
	client    *http.Client
}

type inferTensor struct {
	Name     string  `json:"name"`
	Shape    []int   `json:"shape"`
	Datatype string  `json:"datatype"`
	Data     []int64 `json:"data"`
}

type inferOutputRequest struct {
	Name string `json:"name"`
}

type inferRequest struct {
	Inputs  []inferTensor        `json:"inputs"`
	Outputs []inferOutputRequest `json:"outputs"`
}

type inferOutput struct {
	Name     string    `json:"name"`
	Shape    []int     `json:"shape"`
	Datatype string    `json:"datatype"`
	Data     []float32 `json:"data"`
}

type inferResponse struct {
	ModelName string        `json:"model_name"`
	Outputs   []inferOutput `json:"outputs"`
	Error     string        `json:"error,omitempty"`
}

func NewBERTEncoder(baseURL, model string, dimension int, tokenizer *WordPiece, timeout time.Duration) *BERTEncoder {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &BERTEncoder{
		baseURL:   strings.TrimRight(baseURL, "/"),
		model:     model,
		dimension: dimension,
		tokenizer: tokenizer,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (e *BERTEncoder) Embed(ctx context.Context, text string) ([]float32, error) {
	enc, err := e.tokenizer.Encode(text)
	if err != nil {
		return nil, err
	}
	shape := []int{1, len(enc.InputIDs)}

	reqBody := inferRequest{
		Inputs: []inferTensor{
			{Name: "input_ids", Shape: shape, Datatype: "INT64", Data: enc.InputIDs},
			{Name: "attention_mask", Shape: shape, Datatype: "INT64", Data: enc.AttentionMask},
		},
		Outputs: []inferOutputRequest{{Name: hiddenStateOutput}},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v2/models/%s/infer", e.baseURL, e.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference server returned status %d: %s", resp.StatusCode, preview(body))
	}

	var inferResp inferResponse
	if err := json.Unmarshal(body, &inferResp); err != nil {
		return nil, fmt.Errorf("failed to parse response (body: %s): %w", preview(body), err)
	}
	if inferResp.Error != "" {
		return nil, fmt.Errorf("inference error: %s", inferResp.Error)
	}

	return e.firstPosition(inferResp.Outputs, len(enc.InputIDs))
}

// firstPosition slices the [CLS] hidden state out of a flattened
// [batch, sequence, hidden] tensor.
func (e *BERTEncoder) firstPosition(outputs []inferOutput, seqLen int) ([]float32, error) {
	var out *inferOutput
	for i := range outputs {
		if outputs[i].Name == hiddenStateOutput {
			out = &outputs[i]
			break
		}
	}
	if out == nil {
		return nil, fmt.Errorf("response has no %s output", hiddenStateOutput)
	}
	if len(out.Shape) != 3 || out.Shape[0] != 1 || out.Shape[1] != seqLen {
		return nil, fmt.Errorf("unexpected %s shape %v for sequence length %d", hiddenStateOutput, out.Shape, seqLen)
	}

	hidden := out.Shape[2]
	if e.dimension > 0 && hidden != e.dimension {
		return nil, fmt.Errorf("model hidden size %d does not match configured dimension %d", hidden, e.dimension)
	}
	if len(out.Data) < hidden {
		return nil, fmt.Errorf("%s has %d values, need at least %d", hiddenStateOutput, len(out.Data), hidden)
	}

	vec := make([]float32, hidden)
	copy(vec, out.Data[:hidden])
	return vec, nil
}

func (e *BERTEncoder) Dimension() int {
	return e.dimension
}

func (e *BERTEncoder) ModelName() string {
	return e.model
}

func preview(body []byte) string {
	s := string(body)
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
