package automatic

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"lukechampine.com/frand"
)

// Seed fully determines a game's board and, unless bots ponder, every bot
// decision in it.
type Seed [32]byte

func (s Seed) String() string {
	return base64.RawURLEncoding.EncodeToString(s[:])
}

func parseSeed(text string) (Seed, error) {
	var s Seed
	decoded, err := base64.RawURLEncoding.DecodeString(text)
	if err != nil {
		return s, err
	}
	if len(decoded) != len(s) {
		return s, fmt.Errorf("got %d bytes, expected %d", len(decoded), len(s))
	}
	copy(s[:], decoded)
	return s, nil
}

// GenerateSeeds draws n random seeds.
func GenerateSeeds(n int) []Seed {
	seeds := make([]Seed, n)
	for i := range seeds {
		frand.Read(seeds[i][:])
	}
	return seeds
}

// SaveSeeds writes one base64 seed per line.
func SaveSeeds(seeds []Seed, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create seed file: %w", err)
	}
	w := bufio.NewWriter(f)
	fmt.Fprintln(w, "# arena game seeds, base64 URL-safe, 32 bytes each")
	for _, s := range seeds {
		fmt.Fprintln(w, s.String())
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write seed file: %w", err)
	}
	return f.Close()
}

// LoadSeeds reads a file written by SaveSeeds. Blank lines and lines
// starting with # are skipped.
func LoadSeeds(path string) ([]Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	var seeds []Seed
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		s, err := parseSeed(line)
		if err != nil {
			return nil, fmt.Errorf("bad seed at line %d: %w", lineNum, err)
		}
		seeds = append(seeds, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return seeds, nil
}
