package datasets

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ContextDir is the subdirectory of a dataset root holding one prompt file per
// sequence.
const ContextDir = "context"

// LookupTable maps a sequence prompt to the stem used for its output files.
type LookupTable struct {
	stems map[string]string

	// duplicates lists prompts that appeared in more than one context file.
	duplicates []string
}

// BuildLookupTable scans <root>/context. The first line of every file,
// trimmed, is a prompt; the file name up to its first dot is the stem. When
// two files share a prompt the later file in directory order wins.
func BuildLookupTable(root string) (*LookupTable, error) {
	dir := filepath.Join(root, ContextDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read context directory %s", dir)
	}

	lt := &LookupTable{stems: make(map[string]string, len(entries))}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		prompt, err := readPrompt(path)
		if err != nil {
			return nil, err
		}
		if _, ok := lt.stems[prompt]; ok {
			lt.duplicates = append(lt.duplicates, prompt)
		}
		lt.stems[prompt] = fileStem(e.Name())
	}
	return lt, nil
}

// readPrompt returns the trimmed first line of a context file.
func readPrompt(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to open context file %s", path)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", errors.Wrapf(err, "failed to read context file %s", path)
		}
		return "", errors.Errorf("context file %s is empty", path)
	}
	prompt := strings.TrimSpace(sc.Text())
	if prompt == "" {
		return "", errors.Errorf("context file %s has an empty first line", path)
	}
	return prompt, nil
}

// Stem returns the output stem registered for prompt.
func (lt *LookupTable) Stem(prompt string) (string, error) {
	stem, ok := lt.stems[prompt]
	if !ok {
		return "", errors.Errorf("prompt %q not found in lookup table", prompt)
	}
	return stem, nil
}

// Len is the number of distinct prompts.
func (lt *LookupTable) Len() int { return len(lt.stems) }

// Duplicates returns the prompts that were registered more than once.
func (lt *LookupTable) Duplicates() []string { return lt.duplicates }

// Entries returns a copy of the prompt -> stem mapping.
func (lt *LookupTable) Entries() map[string]string {
	out := make(map[string]string, len(lt.stems))
	for k, v := range lt.stems {
		out[k] = v
	}
	return out
}
