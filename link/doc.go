/*
Package link drives a half-duplex serial connection to a single lab
instrument.

A Link owns one channel (normally a serial.Port) and guarantees that reading
and writing never overlap. Every write is followed by a cooldown during which
the line stays reserved. Inbound bytes are cut into frames, either text lines
or raw blocks, and handed to the pending response waiter and to subscribers.

Basic usage:

	l, err := link.NewSerial("/dev/ttyUSB0",
		[]serial.Option{serial.WithBaudRate(115200)},
		link.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer l.Close()

	if !l.Open() {
		return errors.New("cannot open instrument")
	}
	if !l.Detect(ctx, link.Text("#LAB?\n"), link.Text("AngstremLabController"), 3) {
		return errors.New("instrument not detected")
	}

	frames, cancel := l.Subscribe(64)
	defer cancel()
	for f := range frames {
		fmt.Println(f.Text())
	}

# Status

Status is a bit set: Open, Connected, Writing, Reading and Fault. Fault is
sticky. A faulted link refuses every operation and has to be closed and
replaced.

# Errors

Open, TryWrite, Detect and SendAndVerify report plain booleans and log the
reason. Write returns the sentinel errors (ErrBusy, ErrFaulted, ErrNotOpen,
ErrWriteBlocked, ErrTimeout, ErrTransportClosed) for callers that need to
tell them apart:

	switch err := l.Write(ctx, link.Text("RUN\n")); {
	case errors.Is(err, link.ErrBusy):
		// try again later
	case errors.Is(err, link.ErrFaulted):
		// replace the link
	}
*/
package link
