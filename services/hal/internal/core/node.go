package core

import (
	"os"

	"sensorhal-go/drivers/iio"
	"sensorhal-go/drivers/input"
)

type fileNode struct {
	f  *os.File
	fd int
}

// OpenFile opens a data node on the real filesystem.
func OpenFile(path string, writable bool) (Node, error) {
	flag := os.O_RDONLY
	if writable {
		flag = os.O_RDWR
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, err
	}
	return &fileNode{f: f, fd: int(f.Fd())}, nil
}

func (n *fileNode) Read(p []byte) (int, error) { return n.f.Read(p) }
func (n *fileNode) Fd() int                    { return n.fd }
func (n *fileNode) UseMonotonicClock() error   { return input.SetMonotonicClock(n.fd) }
func (n *fileNode) WaitReadable() error        { return iio.WaitReadable(n.fd) }

func (n *fileNode) Close() error {
	if n.f == nil {
		return nil
	}
	err := n.f.Close()
	n.f = nil
	n.fd = -1
	return err
}
