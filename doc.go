// Package serial provides serial port access for the labserial instrument
// tools.
//
// On Linux ports are driven through termios with golang.org/x/sys/unix. Other
// platforms use go.bug.st/serial. Both expose the same Port interface, and
// the link package builds half-duplex instrument links on top of it.
//
// # Basic Usage
//
// Open a serial port with default configuration (115200 8N1, no flow control):
//
//	port, err := serial.Open("/dev/ttyUSB0")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer port.Close()
//
//	n, err := port.Write([]byte("#LAB?\n"))
//	buffer := make([]byte, 256)
//	n, err = port.Read(buffer)
//
// # Configuration Options
//
// Use functional options for custom configuration:
//
//	port, err := serial.Open("/dev/ttyUSB0",
//	    serial.WithBaudRate(9600),
//	    serial.WithParity(serial.ParityEven),
//	    serial.WithReadTimeout(200*time.Millisecond),
//	)
//
// # Port Discovery
//
// List available serial ports and get USB device metadata:
//
//	ports, err := serial.ListPorts()
//	for _, portPath := range ports {
//	    info, _ := serial.GetPortInfo(portPath)
//	    fmt.Printf("%s: %s (VID=%s PID=%s Serial=%s)\n",
//	        info.Path, info.Description, info.VendorID, info.ProductID, info.SerialNumber)
//	}
//
// # Context Support
//
// Reads and writes have context-aware variants:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
//	defer cancel()
//
//	n, err := port.WriteContext(ctx, data)
//	n, err = port.ReadContext(ctx, buffer)
//
// Buffered reports how many received bytes can be read without blocking.
//
// # Error Handling
//
// Failures map onto sentinel errors, checked with errors.Is:
//
//	if errors.Is(err, serial.ErrPortClosed) {
//	    // the device went away, reopen it
//	}
//
// A read that returns no data within the read timeout reports
// ErrReadTimeout. A hang-up (EIO on Linux) reports ErrPortClosed.
//
// # Default Configuration
//
//   - BaudRate: 115200
//   - DataBits: 8
//   - StopBits: 1
//   - Parity: None
//   - FlowControl: None
//   - ReadTimeout: 100ms
//   - WriteMode: Buffered
package serial
