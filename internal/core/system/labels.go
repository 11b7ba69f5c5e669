package system

// PhaseLabel names a phase of the pipeline.
type PhaseLabel string

// LayerLabel names a layer inside a phase.
type LayerLabel string

// Phases run in this order every pass.
const (
	PreStartup  PhaseLabel = "PreStartup"
	Startup     PhaseLabel = "Startup"
	First       PhaseLabel = "First"
	PreUpdate   PhaseLabel = "PreUpdate"
	FixedUpdate PhaseLabel = "FixedUpdate"
	Update      PhaseLabel = "Update"
	PostUpdate  PhaseLabel = "PostUpdate"
	Last        PhaseLabel = "Last"
	PreRender   PhaseLabel = "PreRender"
	Render      PhaseLabel = "Render"
	PostRender  PhaseLabel = "PostRender"
	FrameEnd    PhaseLabel = "FrameEnd"
)

// Every phase starts with these layers.
const (
	Pre   LayerLabel = "Pre"
	Start LayerLabel = "Start"
	Main  LayerLabel = "Main"
	End   LayerLabel = "End"
	Post  LayerLabel = "Post"
)

// DefaultPhases lists the built-in phases in pipeline order.
var DefaultPhases = []PhaseLabel{
	PreStartup, Startup, First, PreUpdate, FixedUpdate, Update,
	PostUpdate, Last, PreRender, Render, PostRender, FrameEnd,
}

// DefaultLayers lists the layers every new phase starts with.
var DefaultLayers = []LayerLabel{Pre, Start, Main, End, Post}
