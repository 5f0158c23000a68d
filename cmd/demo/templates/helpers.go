package templates

import (
	"strings"

	"github.com/dustin/go-humanize"
)

func comma[T ~int | ~uint64](n T) string {
	return humanize.Comma(int64(n))
}

func seconds(s float64) string {
	return humanize.FtoaWithDigits(s, 3) + "s"
}

func perFrame(n uint64, frames uint64) string {
	if frames == 0 {
		return "0"
	}
	return humanize.FtoaWithDigits(float64(n)/float64(frames), 2)
}

func list(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
