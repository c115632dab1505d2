package main

import (
	"bufio"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
)

var (
	csvFile string
)

// Reads a convergence study, rows of "title, order, h, error" after a header
// line, and prints the observed order between each pair of refinements.
func main() {
	csvFilePtr := flag.String("csvFile", csvFile, "file containing entries of a convergence study")
	flag.Parse()
	csvFile = *csvFilePtr
	if len(csvFile) == 0 {
		flag.Usage()
		os.Exit(1)
	}
	fmt.Printf("Input file: %v\n", csvFile)
	f, err := os.Open(csvFile)
	if err != nil {
		panic(err)
	}
	defer f.Close()
	studies, err := readCSV(bufio.NewReader(f))
	if err != nil {
		panic(err)
	}
	keys := make([]string, 0, len(studies))
	for k := range studies {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		cs := studies[k]
		fmt.Printf("Title = %s, Order = %d\n", cs.title, cs.order)
		rates := cs.Rates()
		for i := range cs.h {
			if i == 0 {
				fmt.Printf("%12.5e, %12.5e\n", cs.h[i], cs.err[i])
				continue
			}
			fmt.Printf("%12.5e, %12.5e, %6.3f\n", cs.h[i], cs.err[i], rates[i-1])
		}
	}
}

type ConvergenceStudy struct {
	title  string
	order  int
	h, err []float64
}

func NewConvergenceStudy(title string, order int) *ConvergenceStudy {
	return &ConvergenceStudy{
		title: title,
		order: order,
	}
}

func (cs *ConvergenceStudy) Add(h, e float64) {
	cs.h = append(cs.h, h)
	cs.err = append(cs.err, e)
}

// Rates is log(e_i/e_i+1)/log(h_i/h_i+1) for consecutive entries, sorted
// from coarse to fine
func (cs *ConvergenceStudy) Rates() (rates []float64) {
	idx := make([]int, len(cs.h))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return cs.h[idx[a]] > cs.h[idx[b]] })
	h, e := make([]float64, len(idx)), make([]float64, len(idx))
	for i, j := range idx {
		h[i], e[i] = cs.h[j], cs.err[j]
	}
	cs.h, cs.err = h, e
	for i := 0; i+1 < len(h); i++ {
		rates = append(rates, math.Log(e[i]/e[i+1])/math.Log(h[i]/h[i+1]))
	}
	return
}

func readCSV(rd io.Reader) (studies map[string]*ConvergenceStudy, err error) {
	var (
		records [][]string
		ok      bool
		cs      *ConvergenceStudy
	)
	studies = make(map[string]*ConvergenceStudy)
	r := csv.NewReader(rd)
	r.TrimLeadingSpace = true
	if records, err = r.ReadAll(); err != nil {
		return
	}
	for i, rec := range records {
		if i == 0 {
			continue
		}
		if len(rec) < 4 {
			return nil, fmt.Errorf("line %d: want title, order, h, error", i+1)
		}
		title, ntxt := strings.TrimSpace(rec[0]), strings.TrimSpace(rec[1])
		var (
			n    int
			h, e float64
		)
		if n, err = strconv.Atoi(ntxt); err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		if h, err = strconv.ParseFloat(strings.TrimSpace(rec[2]), 64); err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		if e, err = strconv.ParseFloat(strings.TrimSpace(rec[3]), 64); err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		combTitle := title + ntxt
		if cs, ok = studies[combTitle]; !ok {
			cs = NewConvergenceStudy(title, n)
			studies[combTitle] = cs
		}
		cs.Add(h, e)
	}
	return
}
