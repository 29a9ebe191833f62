package miner

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// nonceSize is the size in bytes of one nonce in a plot file.
const nonceSize = 262144

// PlotFile is one enumerated proof-of-capacity file.
type PlotFile struct {
	Path       string `json:"path"`
	Size       int64  `json:"size"`
	AccountID  uint64 `json:"accountId"`
	StartNonce uint64 `json:"startNonce"`
	Nonces     uint64 `json:"nonces"`
	Stagger    uint64 `json:"stagger"`
}

// ExpectedSize returns the byte size a well-formed plot file of this nonce
// count must have.
func (p PlotFile) ExpectedSize() int64 {
	return int64(p.Nonces) * nonceSize
}

// parsePlotFileName parses the canonical plot file name format
// <accountID>_<startNonce>_<nonces>_<stagger>. Files not matching the format
// are not plot files and are skipped during enumeration.
func parsePlotFileName(path string) (PlotFile, error) {
	name := filepath.Base(path)
	parts := strings.Split(name, "_")
	if len(parts) != 4 {
		return PlotFile{}, fmt.Errorf("%q is not a plot file name", name)
	}

	fields := make([]uint64, 4)
	for i, part := range parts {
		n, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return PlotFile{}, fmt.Errorf("%q is not a plot file name: field %d: %w", name, i, err)
		}
		fields[i] = n
	}

	return PlotFile{
		Path:       path,
		AccountID:  fields[0],
		StartNonce: fields[1],
		Nonces:     fields[2],
		Stagger:    fields[3],
	}, nil
}
