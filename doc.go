/*
RTLADSB is an rtl-sdr receiver for ADS-B transponders operating at 1090MHz.

Samples are read from a local dongle or an rtl_tcp server and piped into an
external Mode S decoder such as dump1090. Aircraft reported on the decoder's
SBS output are tracked and printed periodically.

Command-line Flags:

	-backend="rtlsdr"

Selects the radio backend, rtlsdr for a local USB dongle or rtltcp for an
rtl_tcp server given by -server.

	-list=false

Prints the devices the backend can see and exits:

	{ID:0 Vendor:Realtek Product:RTL2838UHIDIR Serial:00000001}

	-autogain=true

Enables tuner AGC. When disabled, -gain selects the manual gain in tenths of
a dB and is rounded to the nearest gain the tuner supports. A gain of 0
selects the tuner's highest gain.

	-centerfreq=1090000000

Sets the center frequency. Defaults to 1090MHz.

	-samplerate=2000000

Sets the sample rate. The default matches what dump1090 expects.

	-blocksize=262144

Sets the number of bytes read per sample block, must be a multiple of 512.

	-decoder="dump1090 --ifile - --iformat UC8 --net --quiet"

The decoder command. Unsigned 8-bit IQ samples are written to its stdin. If
the decoder falls behind, sample blocks are dropped rather than stalling the
radio. Its stdout and stderr are logged.

	-sbs="127.0.0.1:30003"

Address of the decoder's SBS-1 BaseStation output. The receiver reconnects
with exponential backoff until the decoder is listening.

	-interval=1s

How often aircraft updated since the last report are printed.

	-duration=0

Sets time to receive for, 0 for infinite.

	-filterid=

Displays only aircraft matching a comma-separated list of hex ICAO
addresses, e.g. A44728,AC2BB7. A later value replaces an earlier one, so the
flag overrides a list from -config or the environment.

	-position=false -maxdistance=0 -lat=0 -lon=0

Displays only aircraft with a known position. With -lat and -lon set,
distance and bearing from the receiver are calculated and -maxdistance limits
output to aircraft within that many km.

	-format="plain"

Sets the output format: plain, csv, json or xml. Plain text is formatted as:

	{ICAO:A44728 Callsign:FLG1724  Squawk:1200 Alt: 5550 Speed:424 Track: 75 Pos:42.35847,-83.42212 Msgs:12 Seen:now}

For csv output the first line is a header. For json and xml output each line
is an element, there is no root node.

	-datalog=""

Logs every aircraft update to the aircraft table of an sqlite database.

	-metrics=""

Serves prometheus metrics on the given address at /metrics.

	-config=""

A yaml file of flag values. Radio settings are nested under a radio key:

	radio:
	  autogain: false
	  gain: 400
	backend: rtltcp
	server: 192.168.1.10:1234

Environment variables override the file and command-line flags override both.
Every flag can be set from the environment as RTLADSB_<FLAG>, for example
RTLADSB_FORMAT=json.

	-logfile="" -loglevel="info"

Logs go to stderr unless -logfile is given, in which case the file is rotated
at 10MB keeping 3 backups.
*/
package main
