package collecting

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os/exec"
	"sort"
	"strconv"
	"strings"
)

// SMIProbe queries GPUs by shelling out to nvidia-smi.
type SMIProbe struct {
	BinaryPath string
}

func NewSMIProbe(binaryPath string) *SMIProbe {
	if strings.TrimSpace(binaryPath) == "" {
		binaryPath = smiBinary
	}
	return &SMIProbe{BinaryPath: binaryPath}
}

// LookupSMI resolves nvidia-smi on the search path.
func LookupSMI() (string, bool) {
	path, err := exec.LookPath(smiBinary)
	if err != nil {
		return "", false
	}
	return path, true
}

func (s *SMIProbe) Name() string { return smiBinary }

func (s *SMIProbe) Close() error { return nil }

var errNoDevices = errors.New("nvidia-smi found no devices")

func (s *SMIProbe) run(ctx context.Context, args ...string) ([]byte, error) {
	qctx, cancel := context.WithTimeout(ctx, smiTimeout)
	defer cancel()

	cmd := exec.CommandContext(qctx, s.BinaryPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		se := strings.TrimSpace(stderr.String())
		if strings.Contains(strings.ToLower(se+string(out)), smiNoDevices) {
			return nil, errNoDevices
		}
		return nil, fmt.Errorf("nvidia-smi %s failed: %w: %s", strings.Join(args, " "), err, se)
	}
	return out, nil
}

// ListNames returns one entry per line of `nvidia-smi -L`.
func (s *SMIProbe) ListNames(ctx context.Context) ([]string, error) {
	out, err := s.run(ctx, smiListFlag)
	if errors.Is(err, errNoDevices) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return parseGPUNames(out), nil
}

func parseGPUNames(out []byte) []string {
	var names []string
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.Contains(strings.ToLower(line), smiNoDevices) {
			continue
		}
		names = append(names, line)
	}
	return names
}

// Query returns per-GPU stats ordered by index.
func (s *SMIProbe) Query(ctx context.Context) ([]GPUStats, error) {
	out, err := s.run(ctx, smiQueryFields, smiQueryFormat)
	if err != nil {
		return nil, err
	}
	return parseGPUStats(out)
}

// parseGPUStats parses `--format=csv,nounits` output. The first row is the
// header; unavailable readings become NaN.
func parseGPUStats(out []byte) ([]GPUStats, error) {
	r := csv.NewReader(bytes.NewReader(out))
	r.TrimLeadingSpace = true

	if _, err := r.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("nvidia-smi returned no output")
		}
		return nil, fmt.Errorf("failed to read nvidia-smi header: %w", err)
	}

	var stats []GPUStats
	for {
		cols, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse nvidia-smi output: %w", err)
		}
		if len(cols) < 4 {
			return nil, fmt.Errorf("unexpected nvidia-smi row: %q", strings.Join(cols, ","))
		}

		idx, err := strconv.Atoi(strings.TrimSpace(cols[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid gpu index %q: %w", cols[0], err)
		}
		row := GPUStats{Index: idx}
		for i, dst := range []*float64{&row.UtilizationPercent, &row.MemoryTotalMiB, &row.MemoryUsedMiB} {
			if *dst, err = parseReading(cols[i+1]); err != nil {
				return nil, err
			}
		}
		stats = append(stats, row)
	}

	sort.Slice(stats, func(i, j int) bool { return stats[i].Index < stats[j].Index })
	return stats, nil
}

func parseReading(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case unavailableValue, notSupported:
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid nvidia-smi reading %q: %w", s, err)
	}
	return v, nil
}
