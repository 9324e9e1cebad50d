package models

import "encoding/json"

// File type bits carried in the mode field, POSIX layout.
const (
	S_IFMT  uint32 = 0o170000 // file type mask
	S_IFREG uint32 = 0o100000 // regular file
	S_IFDIR uint32 = 0o040000 // directory
	S_IFLNK uint32 = 0o120000 // symbolic link
)

// Default modes for newly created objects. Permission bits are stored but
// never enforced.
const (
	DefaultFileMode    = S_IFREG | 0o644
	DefaultDirMode     = S_IFDIR | 0o755
	DefaultSymlinkMode = S_IFLNK | 0o777
)

// RootIno is the fixed inode id of the filesystem root. It always exists,
// has no parent dentry and cannot be removed.
const RootIno int64 = 1

// Inode is the metadata record for one filesystem object. Times are Unix
// seconds. The type bits in Mode are immutable after creation.
type Inode struct {
	Ino   int64
	Mode  uint32
	UID   uint32
	GID   uint32
	Size  int64
	Atime int64
	Mtime int64
	Ctime int64
}

func (i *Inode) IsFile() bool      { return i.Mode&S_IFMT == S_IFREG }
func (i *Inode) IsDirectory() bool { return i.Mode&S_IFMT == S_IFDIR }
func (i *Inode) IsSymlink() bool   { return i.Mode&S_IFMT == S_IFLNK }

// Dirent is a name-to-inode binding within one parent directory.
type Dirent struct {
	Name string `json:"name"`
	Ino  int64  `json:"ino"`
}

// Stats is the result of stat/lstat: inode metadata plus the link count
// derived from the dentry table at read time.
type Stats struct {
	Ino   int64  `json:"ino"`
	Mode  uint32 `json:"mode"`
	Nlink uint32 `json:"nlink"`
	UID   uint32 `json:"uid"`
	GID   uint32 `json:"gid"`
	Size  int64  `json:"size"`
	Atime int64  `json:"atime"`
	Mtime int64  `json:"mtime"`
	Ctime int64  `json:"ctime"`
}

func (s *Stats) IsFile() bool      { return s.Mode&S_IFMT == S_IFREG }
func (s *Stats) IsDirectory() bool { return s.Mode&S_IFMT == S_IFDIR }
func (s *Stats) IsSymlink() bool   { return s.Mode&S_IFMT == S_IFLNK }

type ToolCallStatus string

const (
	ToolCallPending ToolCallStatus = "pending"
	ToolCallSuccess ToolCallStatus = "success"
	ToolCallError   ToolCallStatus = "error"
)

// ToolCall is one audited tool invocation. A call transitions exactly once
// from pending to success or error. Times are Unix seconds.
type ToolCall struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Params      json.RawMessage `json:"params,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	Status      ToolCallStatus  `json:"status"`
	StartedAt   int64           `json:"started_at"`
	CompletedAt *int64          `json:"completed_at,omitempty"`
	DurationMS  *int64          `json:"duration_ms,omitempty"`
}

// ToolCallStats aggregates all calls sharing a tool name.
type ToolCallStats struct {
	Name          string  `json:"name"`
	TotalCalls    int64   `json:"total_calls"`
	Successful    int64   `json:"successful"`
	Failed        int64   `json:"failed"`
	AvgDurationMS float64 `json:"avg_duration_ms"`
}
