package dumper

import (
	"bufio"
	"fmt"
	"io"
)

// HexDump writes buffer to w, 16 bytes per line with printable ascii on the
// right. Lines are labelled with addresses starting at ea.
func HexDump(w io.Writer, buffer []byte, ea uintptr) error {
	bw := bufio.NewWriter(w)
	for i := 0; i < len(buffer); i += 16 {
		fmt.Fprintf(bw, "%16X:", uintptr(i)+ea)
		for j := 0; j < 16; j++ {
			if j == 8 {
				bw.WriteByte(' ')
			}
			if i+j < len(buffer) {
				fmt.Fprintf(bw, " %02x", buffer[i+j])
			} else {
				bw.WriteString("   ")
			}
		}

		bw.WriteString("  |")
		for j := 0; j < 16 && i+j < len(buffer); j++ {
			c := buffer[i+j]
			if c < 32 || c > 126 {
				c = '.'
			}
			bw.WriteByte(c)
		}
		bw.WriteString("|\n")
	}
	return bw.Flush()
}
