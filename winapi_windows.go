package dumper

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// walkProcesses calls fn for every entry of a process snapshot until fn returns false.
func walkProcesses(fn func(*windows.ProcessEntry32) bool) error {
	snapshot, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return platformError("CreateToolhelp32Snapshot", err)
	}
	defer windows.CloseHandle(snapshot)

	var pe windows.ProcessEntry32
	pe.Size = uint32(unsafe.Sizeof(pe))
	if err = windows.Process32First(snapshot, &pe); err != nil {
		return platformError("Process32First", err)
	}

	for {
		if !fn(&pe) {
			return nil
		}
		if err = windows.Process32Next(snapshot, &pe); err != nil {
			if err == windows.ERROR_NO_MORE_FILES {
				return nil
			}
			return platformError("Process32Next", err)
		}
	}
}

// walkModules calls fn for every module of pid until fn returns false.
func walkModules(pid uint32, fn func(*windows.ModuleEntry32) bool) error {
	snapshot, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPMODULE|windows.TH32CS_SNAPMODULE32, pid)
	if err != nil {
		return platformError("CreateToolhelp32Snapshot", err)
	}
	defer windows.CloseHandle(snapshot)

	var me windows.ModuleEntry32
	me.Size = uint32(unsafe.Sizeof(me))
	if err = windows.Module32First(snapshot, &me); err != nil {
		return platformError("Module32First", err)
	}

	for {
		if !fn(&me) {
			return nil
		}
		if err = windows.Module32Next(snapshot, &me); err != nil {
			if err == windows.ERROR_NO_MORE_FILES {
				return nil
			}
			return platformError("Module32Next", err)
		}
	}
}
