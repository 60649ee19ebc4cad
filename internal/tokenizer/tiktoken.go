package tokenizer

import (
	"bufio"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// cl100kPattern is the pre-tokenization split used by cl100k_base. Rank files
// loaded from disk are assumed to follow it.
const cl100kPattern = `(?i:'s|'t|'re|'ve|'m|'ll|'d)|[^\r\n\p{L}\p{N}]?\p{L}+|\p{N}{1,3}| ?[^\s\p{L}\p{N}]+[\r\n]*|\s*[\r\n]+|\s+(?!\S)|\s+`

const endOfText = "<|endoftext|>"

// modelBudgets lists context budgets for common embedding models.
var modelBudgets = map[string]int{
	"text-embedding-3-small": 8191,
	"text-embedding-3-large": 8191,
	"text-embedding-ada-002": 8191,
}

// allSpecial makes special-token text count as tokens instead of panicking
// inside tiktoken-go.
var allSpecial = []string{"all"}

// Tiktoken counts tokens with an OpenAI BPE encoding.
type Tiktoken struct {
	enc       *tiktoken.Tiktoken
	name      string
	maxTokens int
}

// ForModel loads the encoding used by a model identifier (e.g.
// "text-embedding-3-small"), falling back to treating the id as an encoding
// name (e.g. "cl100k_base"). When cacheDir is set, BPE files are read from and
// written to that directory. maxTokens <= 0 selects the model's known budget.
func ForModel(model, cacheDir string, maxTokens int) (*Tiktoken, error) {
	if model == "" {
		return nil, &LoadError{Source: "<empty>", Err: errors.New("model identifier is required")}
	}
	if cacheDir != "" {
		// tiktoken-go reads the cache location from the environment at load time.
		if err := os.Setenv("TIKTOKEN_CACHE_DIR", cacheDir); err != nil {
			return nil, &LoadError{Source: model, Err: fmt.Errorf("set cache dir: %w", err)}
		}
	}

	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		var encErr error
		enc, encErr = tiktoken.GetEncoding(model)
		if encErr != nil {
			return nil, &LoadError{Source: model, Err: errors.Join(err, encErr)}
		}
	}

	if maxTokens <= 0 {
		maxTokens = modelBudgets[model]
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Tiktoken{enc: enc, name: model, maxTokens: maxTokens}, nil
}

// FromFile loads a BPE rank file in the tiktoken text format: one
// "<base64 token> <rank>" pair per line.
func FromFile(path string, maxTokens int) (*Tiktoken, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Source: path, Err: err}
	}
	defer f.Close()

	ranks := make(map[string]int)
	maxRank := -1
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 2 {
			return nil, &LoadError{Source: path, Err: fmt.Errorf("line %d: expected 2 fields, got %d", line, len(fields))}
		}
		token, err := base64.StdEncoding.DecodeString(fields[0])
		if err != nil {
			return nil, &LoadError{Source: path, Err: fmt.Errorf("line %d: decode token: %w", line, err)}
		}
		rank, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, &LoadError{Source: path, Err: fmt.Errorf("line %d: parse rank: %w", line, err)}
		}
		ranks[string(token)] = rank
		maxRank = max(maxRank, rank)
	}
	if err := scanner.Err(); err != nil {
		return nil, &LoadError{Source: path, Err: err}
	}
	if len(ranks) == 0 {
		return nil, &LoadError{Source: path, Err: errors.New("no token ranks found")}
	}

	special := map[string]int{endOfText: maxRank + 1}
	bpe, err := tiktoken.NewCoreBPE(ranks, special, cl100kPattern)
	if err != nil {
		return nil, &LoadError{Source: path, Err: fmt.Errorf("build bpe: %w", err)}
	}
	encoding := &tiktoken.Encoding{
		Name:           path,
		PatStr:         cl100kPattern,
		MergeableRanks: ranks,
		SpecialTokens:  special,
	}

	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Tiktoken{
		enc:       tiktoken.NewTiktoken(bpe, encoding, map[string]any{endOfText: struct{}{}}),
		name:      path,
		maxTokens: maxTokens,
	}, nil
}

func (t *Tiktoken) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	return len(t.enc.Encode(text, allSpecial, nil))
}

func (t *Tiktoken) MaxTokens() int {
	return t.maxTokens
}

// Name is the model id, encoding name, or file the tokenizer was loaded from.
func (t *Tiktoken) Name() string {
	return t.name
}

// Load picks a tokenizer from configuration: a rank file wins over a model
// id, and with neither the byte estimator is used.
func Load(model, file, cacheDir string, maxTokens int) (Tokenizer, error) {
	switch {
	case file != "":
		t, err := FromFile(file, maxTokens)
		if err != nil {
			return nil, err
		}
		return t, nil
	case model != "":
		t, err := ForModel(model, cacheDir, maxTokens)
		if err != nil {
			return nil, err
		}
		return t, nil
	}
	return NewEstimator(maxTokens), nil
}
