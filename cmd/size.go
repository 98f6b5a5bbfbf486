package cmd

import (
	"fmt"
	"strconv"
	"strings"
)

// parseSize parses a byte count with an optional suffix: plain bytes,
// decimal K/KB/M/MB/G/GB/T/TB (powers of 1000) or KiB/MiB/GiB/TiB
// (powers of 1024). Suffixes are case-insensitive.
func parseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}

	i := len(s)
	for i > 0 {
		c := s[i-1]
		if c >= '0' && c <= '9' {
			break
		}
		i--
	}
	digits, suffix := s[:i], strings.ToUpper(strings.TrimSpace(s[i:]))

	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid size %q", s)
	}

	var mult int64
	switch suffix {
	case "", "B":
		mult = 1
	case "K", "KB":
		mult = 1000
	case "M", "MB":
		mult = 1000 * 1000
	case "G", "GB":
		mult = 1000 * 1000 * 1000
	case "T", "TB":
		mult = 1000 * 1000 * 1000 * 1000
	case "KIB":
		mult = 1 << 10
	case "MIB":
		mult = 1 << 20
	case "GIB":
		mult = 1 << 30
	case "TIB":
		mult = 1 << 40
	default:
		return 0, fmt.Errorf("unknown size suffix %q", s[i:])
	}

	if n != 0 && n > (1<<62)/mult {
		return 0, fmt.Errorf("size %q overflows", s)
	}
	return n * mult, nil
}
