package functions

// Accessor callbacks through which the engine reads the host's live
// instance and node store. They are the sole channel to runtime data.
type (
	GetNodeInstancesFunc func(nodeID string) ([]*NodeInstance, error)
	GetNodeInstanceFunc  func(instanceID string) (*NodeInstance, error)
	GetNodeFunc          func(nodeID string) (*Node, error)
)

// RuntimeEvaluationStorage is a per-evaluation read-through cache over the
// three accessor callbacks. It is never written back to the host and never
// shared across evaluation calls.
type RuntimeEvaluationStorage struct {
	getNodeInstances GetNodeInstancesFunc
	getNodeInstance  GetNodeInstanceFunc
	getNode          GetNodeFunc

	nodeToInstances map[string][]*NodeInstance
	instances       map[string]*NodeInstance
	nodes           map[string]*Node
}

// NewRuntimeEvaluationStorage creates a storage for one evaluation call.
func NewRuntimeEvaluationStorage(
	getNodeInstances GetNodeInstancesFunc,
	getNodeInstance GetNodeInstanceFunc,
	getNode GetNodeFunc,
) *RuntimeEvaluationStorage {
	return &RuntimeEvaluationStorage{
		getNodeInstances: getNodeInstances,
		getNodeInstance:  getNodeInstance,
		getNode:          getNode,
		nodeToInstances:  make(map[string][]*NodeInstance),
		instances:        make(map[string]*NodeInstance),
		nodes:            make(map[string]*Node),
	}
}

// NodeInstances returns the live instances of a template node, memoized.
func (s *RuntimeEvaluationStorage) NodeInstances(nodeID string) ([]*NodeInstance, error) {
	if instances, ok := s.nodeToInstances[nodeID]; ok {
		return instances, nil
	}
	instances, err := s.getNodeInstances(nodeID)
	if err != nil {
		return nil, err
	}
	s.nodeToInstances[nodeID] = instances
	for _, instance := range instances {
		s.instances[instance.ID] = instance
	}
	return instances, nil
}

// NodeInstance returns one live instance by id, memoized.
func (s *RuntimeEvaluationStorage) NodeInstance(instanceID string) (*NodeInstance, error) {
	if instance, ok := s.instances[instanceID]; ok {
		return instance, nil
	}
	instance, err := s.getNodeInstance(instanceID)
	if err != nil {
		return nil, err
	}
	s.instances[instanceID] = instance
	return instance, nil
}

// Node returns the template-level node data by id, memoized.
func (s *RuntimeEvaluationStorage) Node(nodeID string) (*Node, error) {
	if node, ok := s.nodes[nodeID]; ok {
		return node, nil
	}
	node, err := s.getNode(nodeID)
	if err != nil {
		return nil, err
	}
	s.nodes[nodeID] = node
	return node, nil
}
