package catalog

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// SampleHeader is the header line of the default catalog.
const SampleHeader = "Name,Price"

// SampleRows is the default catalog written by EnsureSample, one "name,price"
// line per product.
var SampleRows = []string{
	"Laptop,999.99",
	"Mouse,25.99",
	"Keyboard,45.50",
	"Monitor,249.99",
	"Headphones,75.50",
	"Webcam,89.99",
	"USB Hub,19.99",
	"External Hard Drive,129.99",
	"Microphone,99.99",
	"Laptop Stand,39.99",
	"Wireless Charger,29.99",
	"Portable SSD,149.99",
	"Smartphone,699.99",
	"Tablet,499.99",
	"Smartwatch,199.99",
	"Bluetooth Speaker,129.99",
	"Action Camera,299.99",
}

// EnsureSample writes the default catalog to path unless a file already
// exists there. It reports whether it created the file.
func EnsureSample(path string) (bool, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create sample catalog: %w", err)
	}

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, SampleHeader)
	for _, row := range SampleRows {
		fmt.Fprintln(w, row)
	}

	if err := w.Flush(); err != nil {
		f.Close()
		return false, fmt.Errorf("write sample catalog: %w", err)
	}
	if err := f.Close(); err != nil {
		return false, fmt.Errorf("close sample catalog: %w", err)
	}
	return true, nil
}
