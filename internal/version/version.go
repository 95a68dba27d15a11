// ABOUTME: Version information for the pico audio tools
// ABOUTME: Product name, manufacturer and software version shown by the CLIs
package version

const (
	Version      = "0.3.0"
	Product      = "Pico I2S Audio"
	Manufacturer = "Resonate"
)
