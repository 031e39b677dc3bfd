//go:build !windows

package config

const DefaultProcessName = "cs2"

var DefaultModules = []string{
	"cs2",
	"libclient.so",
	"libengine2.so",
	"libschemasystem.so",
	"libanimationsystem.so",
	"librendersystemvulkan.so",
	"libfilesystem_stdio.so",
	"libinputsystem.so",
	"libmaterialsystem2.so",
	"libmeshsystem.so",
	"libnetworksystem.so",
	"libpanorama.so",
	"libpanoramauiclient.so",
	"libresourcesystem.so",
	"libscenesystem.so",
	"libsoundsystem.so",
	"libtier0.so",
	"libvphysics2.so",
	"libworldrenderer.so",
	"libmatchmaking.so",
	"libserver.so",
}
