package config

const DefaultProcessName = "cs2.exe"

var DefaultModules = []string{
	"cs2.exe",
	"client.dll",
	"engine2.dll",
	"schemasystem.dll",
	"animationsystem.dll",
	"rendersystemdx11.dll",
	"filesystem_stdio.dll",
	"inputsystem.dll",
	"materialsystem2.dll",
	"meshsystem.dll",
	"networksystem.dll",
	"panorama.dll",
	"panoramauiclient.dll",
	"resourcesystem.dll",
	"scenesystem.dll",
	"soundsystem.dll",
	"tier0.dll",
	"vphysics2.dll",
	"worldrenderer.dll",
	"matchmaking.dll",
	"server.dll",
}
