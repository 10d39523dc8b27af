// Copyright (C) 2023 - Tillitis AB
// SPDX-License-Identifier: GPL-2.0-only

package substrate

// Split cuts buf into consecutive slices of size bytes, the last one
// possibly shorter. An empty buf gives no slices. A size <= 0 gives
// the whole of buf as one slice. The slices share memory with buf.
func Split(buf []byte, size int) [][]byte {
	if len(buf) == 0 {
		return nil
	}
	if size <= 0 {
		return [][]byte{buf}
	}

	chunks := make([][]byte, 0, (len(buf)+size-1)/size)
	for len(buf) > size {
		chunks = append(chunks, buf[:size:size])
		buf = buf[size:]
	}

	return append(chunks, buf)
}

// payloadType returns the P1 of chunk number idx, counting from 1, out
// of total chunks.
func payloadType(idx, total int) PayloadType {
	switch {
	case idx == total:
		return PayloadLast
	case idx == 1:
		return PayloadInit
	default:
		return PayloadAdd
	}
}
