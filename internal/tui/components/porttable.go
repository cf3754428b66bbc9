package components

import (
	"strings"

	serial "github.com/allbin/labserial"
	"github.com/allbin/labserial/internal/tui/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"
)

const (
	colPort    = "port"
	colType    = "type"
	colDesc    = "desc"
	colUSB     = "usb"
	colSerial  = "serial"
	colProduct = "product"
)

// PortType classifies a port by its device name.
func PortType(name string) string {
	name = strings.ToLower(name)
	switch {
	case strings.HasPrefix(name, "ttyusb"):
		return "USB Serial"
	case strings.HasPrefix(name, "ttyacm"):
		return "USB CDC/ACM"
	case strings.HasPrefix(name, "ttyama"):
		return "ARM Serial"
	case strings.HasPrefix(name, "ttymxc"):
		return "i.MX Serial"
	case strings.HasPrefix(name, "ttyo"):
		return "OMAP Serial"
	case strings.HasPrefix(name, "ttys"):
		return "Standard Serial"
	case strings.HasPrefix(name, "com"):
		return "COM Port"
	default:
		return "Serial Port"
	}
}

// PortTable renders discovered ports as a static table.
func PortTable(ports []serial.PortInfo) string {
	columns := []table.Column{
		table.NewColumn(colPort, "Port", 16),
		table.NewColumn(colType, "Type", 16),
		table.NewColumn(colDesc, "Description", 24),
		table.NewColumn(colUSB, "VID:PID", 11),
		table.NewColumn(colSerial, "Serial", 14),
		table.NewColumn(colProduct, "Product", 24),
	}

	rows := make([]table.Row, 0, len(ports))
	for _, p := range ports {
		usb := "-"
		if p.IsUSB {
			usb = p.VendorID + ":" + p.ProductID
		}
		rows = append(rows, table.NewRow(table.RowData{
			colPort:    table.NewStyledCell(p.Name, lipgloss.NewStyle().Foreground(styles.Mauve)),
			colType:    PortType(p.Name),
			colDesc:    p.Description,
			colUSB:     usb,
			colSerial:  p.SerialNumber,
			colProduct: p.Product,
		}))
	}

	return table.New(columns).
		WithRows(rows).
		HeaderStyle(lipgloss.NewStyle().Foreground(styles.Mauve).Bold(true)).
		WithBaseStyle(lipgloss.NewStyle().Foreground(styles.Text).BorderForeground(styles.Surface2)).
		BorderRounded().
		View()
}
