// Package lcov writes coverage maps as LCOV tracefiles.
package lcov

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/praetorian-inc/covremap/pkg/collector"
	"github.com/praetorian-inc/covremap/pkg/types"
)

// Write emits one LCOV record per file of cov, in path order.
func Write(w io.Writer, cov types.CoverageMap) error {
	bw := bufio.NewWriter(w)
	for _, path := range cov.Paths() {
		fc := cov[path]
		if fc == nil {
			continue
		}
		writeFile(bw, path, fc)
	}
	return bw.Flush()
}

func writeFile(w *bufio.Writer, path string, fc *types.FileCoverage) {
	fmt.Fprintf(w, "TN:\nSF:%s\n", path)

	fnIndices := types.SortedIndices(fc.FnMap)
	for _, idx := range fnIndices {
		fn := fc.FnMap[idx]
		fmt.Fprintf(w, "FN:%d,%s\n", fn.Line, fn.Name)
	}
	hit := 0
	for _, idx := range fnIndices {
		count := fc.F[idx]
		if count > 0 {
			hit++
		}
		fmt.Fprintf(w, "FNDA:%d,%s\n", count, fc.FnMap[idx].Name)
	}
	fmt.Fprintf(w, "FNF:%d\nFNH:%d\n", len(fnIndices), hit)

	lines := fc.L
	if lines == nil {
		lines = collector.LineCounts(fc)
	}
	lineNumbers := make([]int, 0, len(lines))
	for k := range lines {
		n, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		lineNumbers = append(lineNumbers, n)
	}
	sort.Ints(lineNumbers)
	hit = 0
	for _, n := range lineNumbers {
		count := lines[strconv.Itoa(n)]
		if count > 0 {
			hit++
		}
		fmt.Fprintf(w, "DA:%d,%d\n", n, count)
	}
	fmt.Fprintf(w, "LF:%d\nLH:%d\n", len(lineNumbers), hit)

	found, hit := 0, 0
	for _, idx := range types.SortedIndices(fc.BranchMap) {
		br := fc.BranchMap[idx]
		counts := fc.B[idx]
		for i := range br.Locations {
			taken := "-"
			if i < len(counts) && counts[i] > 0 {
				taken = strconv.Itoa(counts[i])
				hit++
			}
			fmt.Fprintf(w, "BRDA:%d,%s,%d,%s\n", br.Line, idx, i, taken)
			found++
		}
	}
	fmt.Fprintf(w, "BRF:%d\nBRH:%d\nend_of_record\n", found, hit)
}
