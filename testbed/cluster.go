package testbed

import (
	"bytes"
	"fmt"
	"time"

	"github.com/joomcode/respipe/redis"
)

// Masters is a number of masters in Cluster. Every master has one replica.
const Masters = 3

// Node is a cluster node.
type Node struct {
	Server
	NodeID []byte
}

// Cluster is a redis cluster with Masters masters (Node[0:Masters]) and their replicas
// (Node[Masters:]). Replica of Node[i] is Node[i+Masters].
type Cluster struct {
	Node [2 * Masters]Node

	owner [redis.NumSlots]uint8
}

// NewCluster starts cluster on ports startport...startport+5.
// Slots are split evenly between masters.
func NewCluster(startport uint16) *Cluster {
	cl := &Cluster{}
	for i := range cl.Node {
		n := &cl.Node[i]
		n.Port = startport + uint16(i)
		n.Args = []string{
			"--cluster-enabled", "yes",
			"--cluster-config-file", "node-" + n.PortStr() + ".conf",
			"--cluster-node-timeout", "100",
			"--cluster-require-full-coverage", "no",
		}
		if err := n.Start(); err != nil {
			panic(err)
		}
		n.SetupNodeID()
		n.DoSure("CLUSTER", "SET-CONFIG-EPOCH", i+1)
	}
	for i := range cl.Node {
		for j := i + 1; j < len(cl.Node); j++ {
			cl.Node[i].DoSure("CLUSTER", "MEET", "127.0.0.1", cl.Node[j].Port)
		}
	}
	time.Sleep(time.Second)

	per := redis.NumSlots / Masters
	for m := 0; m < Masters; m++ {
		from, to := m*per, (m+1)*per-1
		if m == Masters-1 {
			to = redis.NumSlots - 1
		}
		cl.Node[m].AddSlots(from, to)
		for slot := from; slot <= to; slot++ {
			cl.owner[slot] = uint8(m)
		}
	}
	for m := 0; m < Masters; m++ {
		cl.Node[m+Masters].DoSure("CLUSTER", "REPLICATE", cl.Node[m].NodeID)
	}
	cl.WaitClusterOk()

	return cl
}

// Stop stops all nodes.
func (cl *Cluster) Stop() {
	for i := range cl.Node {
		cl.Node[i].Stop()
	}
}

// Owner returns index of master that serves slot.
func (cl *Cluster) Owner(slot int) int {
	return int(cl.owner[slot])
}

// WaitClusterOk waits until every node sees healthy cluster. It panics after 30 seconds.
func (cl *Cluster) WaitClusterOk() {
	deadline := time.Now().Add(30 * time.Second)
	for !cl.ClusterOk() {
		if time.Now().After(deadline) {
			panic(fmt.Sprintf("cluster on port %d is not healthy", cl.Node[0].Port))
		}
		time.Sleep(100 * time.Millisecond)
	}
}

// ClusterOk checks cluster state on every node.
func (cl *Cluster) ClusterOk() bool {
	for i := range cl.Node {
		if !cl.Node[i].healthy() {
			return false
		}
	}
	return true
}

// healthy: cluster_state is ok, replica is linked to its master, and all masters are known.
func (n *Node) healthy() bool {
	info, ok := n.Do("CLUSTER", "INFO").([]byte)
	if !ok || !bytes.Contains(info, []byte("cluster_state:ok")) {
		return false
	}
	repl, ok := n.Do("INFO", "REPLICATION").([]byte)
	if !ok {
		return false
	}
	if !bytes.Contains(repl, []byte("role:master")) && !bytes.Contains(repl, []byte("master_link_status:up")) {
		return false
	}
	nodes, ok := n.Do("CLUSTER", "NODES").([]byte)
	if !ok {
		return false
	}
	masters := 0
	for _, line := range bytes.Split(nodes, []byte("\n")) {
		if bytes.Contains(line, []byte("master")) && !bytes.Contains(line, []byte("fail")) {
			masters++
		}
	}
	return masters == Masters
}

// InitMoveSlot marks slot as migrating from one master to another.
// Until FinishMoveSlot or CancelMoveSlot, source answers ASK for absent keys of slot.
func (cl *Cluster) InitMoveSlot(slot, from, to int) {
	cl.Node[to].DoSure("CLUSTER", "SETSLOT", slot, "IMPORTING", cl.Node[from].NodeID)
	cl.Node[from].DoSure("CLUSTER", "SETSLOT", slot, "MIGRATING", cl.Node[to].NodeID)
}

// CancelMoveSlot cancels slot migration.
func (cl *Cluster) CancelMoveSlot(slot int) {
	for m := 0; m < Masters; m++ {
		cl.Node[m].DoSure("CLUSTER", "SETSLOT", slot, "STABLE")
	}
}

// FinishMoveSlot assigns slot to new master.
func (cl *Cluster) FinishMoveSlot(slot, to int) {
	for m := 0; m < Masters; m++ {
		cl.Node[m].DoSure("CLUSTER", "SETSLOT", slot, "NODE", cl.Node[to].NodeID)
	}
	cl.owner[slot] = uint8(to)
}

// MoveSlot migrates slot with all its keys to master `to`.
func (cl *Cluster) MoveSlot(slot, to int) {
	from := cl.Owner(slot)
	if from == to {
		return
	}
	cl.InitMoveSlot(slot, from, to)
	for {
		keys, _ := cl.Node[from].DoSure("CLUSTER", "GETKEYSINSLOT", slot, 100).([]interface{})
		if len(keys) == 0 {
			break
		}
		// MIGRATE host port "" db timeout KEYS key...
		args := append([]interface{}{"127.0.0.1", cl.Node[to].Port, "", 0, 5000, "REPLACE", "KEYS"}, keys...)
		cl.Node[from].DoSure("MIGRATE", args...)
	}
	cl.FinishMoveSlot(slot, to)
	cl.WaitClusterOk()
}

// SetupNodeID fetches id of node.
func (n *Node) SetupNodeID() {
	nodes, _ := n.DoSure("CLUSTER", "NODES").([]byte)
	for _, line := range bytes.Split(nodes, []byte{'\n'}) {
		if bytes.Contains(line, []byte("myself")) {
			n.NodeID = bytes.Fields(line)[0]
			return
		}
	}
}

// AddSlots assigns slots from...to (inclusive) to node.
func (n *Node) AddSlots(from, to int) {
	args := []interface{}{"ADDSLOTS"}
	for slot := from; slot <= to; slot++ {
		args = append(args, slot)
	}
	n.DoSure("CLUSTER", args...)
}
