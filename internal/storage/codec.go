package storage

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/annel0/tileworld/internal/tile"
	"github.com/annel0/tileworld/internal/world"
)

// Формат записи чанка (little endian):
//
//	"TILE" | version u16 | x i32 | y i32 | [v2: layers u16] | tiles u16... | crc32
//
// v1 содержит один слой (Ground), v2 все слои подряд. CRC32 (IEEE) считается
// по байтам тайлов.
var magic = [4]byte{'T', 'I', 'L', 'E'}

const (
	// FormatV1 однослойный формат
	FormatV1 uint16 = 1
	// FormatV2 многослойный формат
	FormatV2 uint16 = 2

	headerSize   = 4 + 2 + 4 + 4
	checksumSize = 4
)

// Header заголовок записи
type Header struct {
	Version uint16
	Coord   world.ChunkCoord
	Layers  int
}

// Codec кодирует чанки фиксированного размера
type Codec struct {
	Width, Height int
}

// NewCodec создаёт кодек под геометрию мира
func NewCodec(g world.Geometry) Codec {
	return Codec{Width: g.ChunkWidth, Height: g.ChunkHeight}
}

func (c Codec) tiles() int {
	return c.Width * c.Height
}

// Encode всегда пишет текущую версию формата
func (c Codec) Encode(data *world.ChunkData) ([]byte, error) {
	if data.Width != c.Width || data.Height != c.Height {
		return nil, fmt.Errorf("размер чанка %dx%d не совпадает с кодеком %dx%d",
			data.Width, data.Height, c.Width, c.Height)
	}

	n := c.tiles()
	buf := make([]byte, 0, headerSize+2+int(tile.MaxLayers)*n*2+checksumSize)
	buf = append(buf, magic[:]...)
	buf = binary.LittleEndian.AppendUint16(buf, FormatV2)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(data.Coord.X))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(data.Coord.Y))
	buf = binary.LittleEndian.AppendUint16(buf, uint16(tile.MaxLayers))

	start := len(buf)
	for _, l := range tile.Layers {
		for _, id := range data.Layer(l) {
			buf = binary.LittleEndian.AppendUint16(buf, uint16(id))
		}
	}
	sum := crc32.ChecksumIEEE(buf[start:])
	buf = binary.LittleEndian.AppendUint32(buf, sum)
	return buf, nil
}

func corrupt(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", world.ErrCorruptChunk, fmt.Sprintf(format, args...))
}

// ReadHeader разбирает заголовок без проверки тела
func ReadHeader(b []byte) (Header, error) {
	if len(b) < headerSize {
		return Header{}, corrupt("запись короче заголовка: %d байт", len(b))
	}
	if !bytes.Equal(b[:4], magic[:]) {
		return Header{}, corrupt("неверная сигнатура %q", b[:4])
	}
	h := Header{
		Version: binary.LittleEndian.Uint16(b[4:6]),
		Coord: world.ChunkCoord{
			X: int32(binary.LittleEndian.Uint32(b[6:10])),
			Y: int32(binary.LittleEndian.Uint32(b[10:14])),
		},
	}
	switch h.Version {
	case FormatV1:
		h.Layers = 1
	case FormatV2:
		if len(b) < headerSize+2 {
			return Header{}, corrupt("нет числа слоёв")
		}
		h.Layers = int(binary.LittleEndian.Uint16(b[headerSize : headerSize+2]))
	default:
		return Header{}, corrupt("неизвестная версия формата %d", h.Version)
	}
	return h, nil
}

// Decode читает запись любой поддерживаемой версии. Результат всегда в текущем
// формате и чистый; для v1 слой Ground берётся из записи, остальные пусты.
func (c Codec) Decode(b []byte) (*world.ChunkData, Header, error) {
	h, err := ReadHeader(b)
	if err != nil {
		return nil, h, err
	}

	body := b[headerSize:]
	if h.Version == FormatV2 {
		if h.Layers != int(tile.MaxLayers) {
			return nil, h, corrupt("ожидалось %d слоёв, в записи %d", tile.MaxLayers, h.Layers)
		}
		body = body[2:]
	}

	n := c.tiles()
	want := h.Layers*n*2 + checksumSize
	if len(body) != want {
		return nil, h, corrupt("размер тела %d байт, ожидалось %d", len(body), want)
	}

	tileBytes := body[:len(body)-checksumSize]
	stored := binary.LittleEndian.Uint32(body[len(body)-checksumSize:])
	if sum := crc32.ChecksumIEEE(tileBytes); sum != stored {
		return nil, h, corrupt("контрольная сумма %08x, ожидалось %08x", sum, stored)
	}

	data := world.NewChunkData(h.Coord, c.Width, c.Height)
	layer := make([]tile.ID, n)
	for l := 0; l < h.Layers; l++ {
		off := l * n * 2
		for i := range layer {
			layer[i] = tile.ID(binary.LittleEndian.Uint16(tileBytes[off+i*2:]))
		}
		if err := data.SetLayer(tile.Layer(l), layer); err != nil {
			return nil, h, err
		}
	}

	data.Format = world.FormatVersion
	if h.Version == FormatV1 {
		data.Origin = world.OriginUpgraded
	} else {
		data.Origin = world.OriginStored
	}
	return data, h, nil
}

// EncodeV1 пишет только слой Ground в старом формате. Нужен для тестов
// миграции и для выгрузки в старые инструменты.
func (c Codec) EncodeV1(data *world.ChunkData) ([]byte, error) {
	if data.Width != c.Width || data.Height != c.Height {
		return nil, fmt.Errorf("размер чанка %dx%d не совпадает с кодеком %dx%d",
			data.Width, data.Height, c.Width, c.Height)
	}
	buf := make([]byte, 0, headerSize+c.tiles()*2+checksumSize)
	buf = append(buf, magic[:]...)
	buf = binary.LittleEndian.AppendUint16(buf, FormatV1)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(data.Coord.X))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(data.Coord.Y))
	start := len(buf)
	for _, id := range data.Layer(tile.Ground) {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(id))
	}
	buf = binary.LittleEndian.AppendUint32(buf, crc32.ChecksumIEEE(buf[start:]))
	return buf, nil
}
