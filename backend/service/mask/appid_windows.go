//go:build windows

package mask

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	shell32DLL                                  = windows.NewLazySystemDLL("shell32.dll")
	procSetCurrentProcessExplicitAppUserModelID = shell32DLL.NewProc("SetCurrentProcessExplicitAppUserModelID")
)

// setProcessAppID sets the taskbar grouping id so the window groups with the masked product.
func setProcessAppID(id string) error {
	p, err := windows.UTF16PtrFromString(id)
	if err != nil {
		return err
	}
	if err := procSetCurrentProcessExplicitAppUserModelID.Find(); err != nil {
		return err
	}
	hr, _, _ := procSetCurrentProcessExplicitAppUserModelID.Call(uintptr(unsafe.Pointer(p)))
	if hr != 0 {
		return fmt.Errorf("SetCurrentProcessExplicitAppUserModelID failed: HRESULT 0x%08x", uint32(hr))
	}
	return nil
}
