package imagegen

import (
	"fmt"
	"strconv"
	"strings"
)

// aspectRatios maps the supported aspect-ratio shorthands to concrete
// pixel dimensions accepted by the image API.
var aspectRatios = map[string][2]int{
	"1:1":  {2048, 2048},
	"4:3":  {2304, 1728},
	"3:4":  {1728, 2304},
	"16:9": {2560, 1440},
	"9:16": {1440, 2560},
	"3:2":  {2496, 1664},
	"2:3":  {1664, 2496},
	"21:9": {3024, 1296},
}

// ParseSize normalizes a size argument to the API's size string. It
// accepts resolution classes ("1K", "2K", "4K"), aspect-ratio shorthands
// ("16:9"), and explicit "WxH" dimensions. Anything unparseable falls
// back to 1:1.
func ParseSize(size string) string {
	size = strings.TrimSpace(size)

	switch strings.ToUpper(size) {
	case "1K", "2K", "4K":
		return strings.ToUpper(size)
	}

	if dims, ok := aspectRatios[size]; ok {
		return fmt.Sprintf("%dx%d", dims[0], dims[1])
	}

	normalized := strings.ReplaceAll(size, "X", "x")
	if parts := strings.Split(normalized, "x"); len(parts) == 2 {
		width, werr := strconv.Atoi(strings.TrimSpace(parts[0]))
		height, herr := strconv.Atoi(strings.TrimSpace(parts[1]))
		if werr == nil && herr == nil && width > 0 && height > 0 {
			return fmt.Sprintf("%dx%d", width, height)
		}
	}

	dims := aspectRatios["1:1"]
	return fmt.Sprintf("%dx%d", dims[0], dims[1])
}
