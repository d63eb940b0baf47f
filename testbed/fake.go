package testbed

import (
	"bufio"
	"net"

	"github.com/joomcode/respipe/resp"
)

// FakeServer is a tcp server on loopback that answers every request with canned reply.
type FakeServer struct {
	l net.Listener
	// Seen receives arguments of every request, in order of arrival.
	Seen chan []string
}

// ListenFake starts listening on random loopback port. Requests are not answered until Serve.
func ListenFake() (*FakeServer, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	return &FakeServer{l: l, Seen: make(chan []string, 100)}, nil
}

// Addr returns address server listens on.
func (s *FakeServer) Addr() string {
	return s.l.Addr().String()
}

// Serve accepts connections in background and writes reply(args) in response to each request.
// Reply could contain several frames, or be empty.
func (s *FakeServer) Serve(reply func(args []string) string) {
	go func() {
		for {
			c, err := s.l.Accept()
			if err != nil {
				return
			}
			go s.handle(c, reply)
		}
	}()
}

func (s *FakeServer) handle(c net.Conn, reply func(args []string) string) {
	defer c.Close()
	r := bufio.NewReader(c)
	for {
		f, err := resp.Read(r)
		if err != nil {
			return
		}
		args := make([]string, len(f.Array))
		for i := range f.Array {
			args[i] = string(f.Array[i].Str)
		}
		select {
		case s.Seen <- args:
		default:
		}
		if _, err := c.Write([]byte(reply(args))); err != nil {
			return
		}
	}
}

// Close stops listening. Established connections are closed by clients.
func (s *FakeServer) Close() error {
	return s.l.Close()
}
