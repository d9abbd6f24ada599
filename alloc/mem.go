package alloc

import (
	"os"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/outofforest/photon"
)

const (
	hugePageSize2M = 2 * 1024 * 1024
	hugePageSize1G = 1024 * 1024 * 1024
)

// Allocate maps anonymous memory used as arena storage.
func Allocate(size uint64, useHugePages bool) ([]byte, func(), error) {
	if size == 0 {
		return nil, func() {}, nil
	}

	opts := unix.MAP_PRIVATE | unix.MAP_ANONYMOUS | unix.MAP_POPULATE
	if useHugePages {
		// When using huge pages, the size must be a multiple of the hugepage size. Otherwise, munmap fails.
		opts |= unix.MAP_HUGETLB
	}
	dataP, err := unix.MmapPtr(-1, 0, nil, uintptr(size), unix.PROT_READ|unix.PROT_WRITE, opts)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "memory allocation of %d bytes failed", size)
	}

	return photon.SliceFromPointer[byte](dataP, int(size)), func() {
		// mmap rounds the size up to the page size and munmap must receive the rounded value.
		// There is no way to read the huge page size, so both possible ones are tried.
		if useHugePages {
			if err := unmap(dataP, uintptr(size), hugePageSize2M); err == nil {
				return
			}
			_ = unmap(dataP, uintptr(size), hugePageSize1G)
		}

		_ = unmap(dataP, uintptr(size), uintptr(os.Getpagesize()))
	}, nil
}

func unmap(ptr unsafe.Pointer, size, pageSize uintptr) error {
	return unix.MunmapPtr(ptr, (size+pageSize-1)/pageSize*pageSize)
}
