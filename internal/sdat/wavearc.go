package sdat

import (
	"github.com/Terr/phoenix-wright-2-onifier/internal/binio"
)

// ParseWaveArchiveFile splits an SWAR file into its samples.
func ParseWaveArchiveFile(data []byte) ([][]byte, error) {
	r := binio.NewReader(data)
	if err := checkNitroHeader(r, "SWAR"); err != nil {
		return nil, err
	}
	if !r.Magic(dataBlockOffset, "DATA") {
		return nil, malformed("SWAR: missing DATA block")
	}

	end := dataBlockOffset + int(r.U32(dataBlockOffset+4))
	count := int(r.U32(dataCountOffset))
	if r.Err() != nil {
		return nil, wrapRead("SWAR header", r.Err())
	}
	if end > len(data) {
		end = len(data)
	}
	if dataItemsOffset+count*4 > end {
		return nil, malformed("SWAR: %d sample offsets exceed file size", count)
	}

	offsets := make([]int, count+1)
	for i := 0; i < count; i++ {
		offsets[i] = int(r.U32(dataItemsOffset + i*4))
	}
	offsets[count] = end

	samples := make([][]byte, count)
	for i := 0; i < count; i++ {
		start, stop := offsets[i], offsets[i+1]
		if start < dataItemsOffset+count*4 || stop < start || stop > end {
			return nil, malformed("SWAR: sample %d spans 0x%X-0x%X", i, start, stop)
		}
		samples[i] = r.Bytes(start, stop-start)
	}
	if r.Err() != nil {
		return nil, wrapRead("SWAR samples", r.Err())
	}
	return samples, nil
}

// WaveArchiveFile encodes samples as an SWAR file. Samples are stored back
// to back in order.
func WaveArchiveFile(samples [][]byte) []byte {
	var w binio.Writer
	writeNitroHeader(&w, "SWAR", nitroHeaderSize, 1)
	block := startDataBlock(&w, len(samples))

	table := w.Len()
	w.Zero(4 * len(samples))
	for i, s := range samples {
		w.PutU32(table+i*4, uint32(w.Len()))
		w.Write(s)
	}

	finishDataBlock(&w, block)
	return finishNitro(&w)
}
