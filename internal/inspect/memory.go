package inspect

import (
	"context"
	"strconv"
	"strings"

	"clrdebug/internal/model"
	"clrdebug/internal/platform"
)

const maxMemoryReadSize = 65536

// ParseAddress accepts "0x..." hex or a plain decimal string, per §4.7.
func ParseAddress(s string) (uint64, *model.Error) {
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X") {
		v, err := strconv.ParseUint(trimmed[2:], 16, 64)
		if err != nil {
			return 0, model.NewErrorf(model.ErrInvalidAddress, "malformed hex address %q", s)
		}
		return v, nil
	}
	v, err := strconv.ParseUint(trimmed, 10, 64)
	if err != nil {
		return 0, model.NewErrorf(model.ErrInvalidAddress, "malformed address %q", s)
	}
	return v, nil
}

// MemoryRead reads size bytes at address via rt, rendering both a raw byte
// slice and an ASCII view (non-printable bytes as '.'). A partial native
// read is not itself an operation failure — it surfaces as MemoryRead.Error
// alongside whatever bytes were actually read (§4.7).
func MemoryRead(ctx context.Context, rt platform.Runtime, address uint64, size int) (*model.MemoryRead, *model.Error) {
	if size < 1 || size > maxMemoryReadSize {
		return nil, model.NewError(model.ErrInvalidParameter, "size must be in [1,65536]")
	}
	buf := make([]byte, size)
	n, err := rt.ReadMemory(ctx, address, buf)
	result := &model.MemoryRead{
		Address: "0x" + strconv.FormatUint(address, 16),
		Bytes:   buf[:n],
		ASCII:   renderASCII(buf[:n]),
	}
	if err != nil {
		result.Error = err.Error()
	} else if n < size {
		result.Error = "partial read"
	}
	return result, nil
}

func renderASCII(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		if c >= 0x20 && c < 0x7f {
			sb.WriteByte(c)
		} else {
			sb.WriteByte('.')
		}
	}
	return sb.String()
}
