package source

// FileID indexes a FileSet; zero is no file.
type FileID uint32

// FileFlags describe where a file's content came from.
type FileFlags uint8

const (
	FileVirtual        FileFlags = 1 << iota // добавлен из памяти
	FileNoText                               // в документе юнита не было текста
	FileNormalizedCRLF                       // \r\n заменены на \n
)

// File is one unit known to a FileSet. Content is empty for FileNoText;
// positions in diagnostics then fall back to the path alone.
type File struct {
	ID      FileID
	Path    string
	Content []byte
	// LineIdx holds the offset of every '\n' in Content.
	LineIdx []uint32
	Hash    [32]byte
	Flags   FileFlags
}

// LineCol is a 1-based line and byte column.
type LineCol struct {
	Line uint32
	Col  uint32
}
