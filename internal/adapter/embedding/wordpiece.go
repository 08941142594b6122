package embedding

import (
	"fmt"
	"sync"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/model/wordpiece"
	"github.com/sugarme/tokenizer/normalizer"
	"github.com/sugarme/tokenizer/pretokenizer"
	"github.com/sugarme/tokenizer/processor"
)

const (
	tokenCLS = "[CLS]"
	tokenSEP = "[SEP]"
	tokenPAD = "[PAD]"
	tokenUNK = "[UNK]"

	// DefaultMaxSequenceLength is the positional limit of BERT-base encoders,
	// special tokens included.
	DefaultMaxSequenceLength = 512
)

// Encoding is a single tokenized input ready for an encoder.
type Encoding struct {
	InputIDs      []int64
	AttentionMask []int64
}

// WordPiece is an uncased BERT tokenizer over a vocab.txt file: BERT
// normalization, whitespace and punctuation pre-tokenization, greedy subword
// lookup and [CLS] ... [SEP] wrapping.
type WordPiece struct {
	// tokenizer.Tokenizer makes no concurrency promises.
	mu sync.Mutex
	tk *tokenizer.Tokenizer

	sepID  int64
	padID  int64
	maxLen int
}

// LoadVocab builds the tokenizer from a vocab.txt file (one token per line,
// id = line number).
func LoadVocab(path string) (*WordPiece, error) {
	model, err := wordpiece.NewWordPieceFromFile(path, tokenUNK)
	if err != nil {
		return nil, fmt.Errorf("failed to load vocab: %w", err)
	}
	tk := tokenizer.NewTokenizer(model)

	ids := make(map[string]int, 4)
	for _, token := range []string{tokenCLS, tokenSEP, tokenPAD, tokenUNK} {
		id, ok := tk.TokenToId(token)
		if !ok {
			return nil, fmt.Errorf("vocab is missing special token %s", token)
		}
		ids[token] = id
	}

	// clean text, CJK spacing, accent stripping, lowercasing
	tk.WithNormalizer(normalizer.NewBertNormalizer(true, true, true, true))
	tk.WithPreTokenizer(pretokenizer.NewBertPreTokenizer())
	tk.WithPostProcessor(processor.NewBertProcessing(
		processor.PostToken{Id: ids[tokenSEP], Value: tokenSEP},
		processor.PostToken{Id: ids[tokenCLS], Value: tokenCLS},
	))

	return &WordPiece{
		tk:     tk,
		sepID:  int64(ids[tokenSEP]),
		padID:  int64(ids[tokenPAD]),
		maxLen: DefaultMaxSequenceLength,
	}, nil
}

// Encode tokenizes text, wraps it in [CLS] ... [SEP], pads it to its own
// length and builds the matching attention mask. Sequences longer than the
// positional limit are cut before [SEP].
func (w *WordPiece) Encode(text string) (Encoding, error) {
	w.mu.Lock()
	enc, err := w.tk.EncodeSingle(text, true)
	w.mu.Unlock()
	if err != nil {
		return Encoding{}, fmt.Errorf("failed to tokenize: %w", err)
	}

	raw := enc.GetIds()
	if len(raw) > w.maxLen {
		raw = append(raw[:w.maxLen-1:w.maxLen-1], int(w.sepID))
	}
	ids := make([]int64, len(raw))
	for i, id := range raw {
		ids[i] = int64(id)
	}
	return w.pad(ids, len(ids)), nil
}

// pad right-pads ids with [PAD] up to length and marks real positions in the
// mask. A single query is padded to its own length, so this only matters when
// several encodings share one batch tensor.
func (w *WordPiece) pad(ids []int64, length int) Encoding {
	n := len(ids)
	padded := make([]int64, length)
	mask := make([]int64, length)
	copy(padded, ids)
	for i := range padded {
		if i < n {
			mask[i] = 1
		} else {
			padded[i] = w.padID
		}
	}
	return Encoding{InputIDs: padded, AttentionMask: mask}
}

// Tokenize returns the subword pieces of text, without special tokens.
func (w *WordPiece) Tokenize(text string) ([]string, error) {
	w.mu.Lock()
	enc, err := w.tk.EncodeSingle(text, false)
	w.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to tokenize: %w", err)
	}
	tokens := enc.GetTokens()
	if len(tokens) == 0 {
		return nil, nil
	}
	return tokens, nil
}
