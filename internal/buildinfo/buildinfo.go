package buildinfo

const Graffiti = "__     ____        __\n\\ \\   / /\\ \\      / /\n \\ \\ / /  \\ \\ /\\ / / \n  \\ V /    \\ V  V /  \n   \\_/      \\_/\\_/   \n\n"

var (
	BuildTag string = "v0.0.0"
	Name     string = "VW"
	Time     string = ""
)

type buildinfo struct{}

func (buildinfo) Tag() string {
	return BuildTag
}

func (buildinfo) Name() string {
	return Name
}

func (buildinfo) Time() string {
	return Time
}

var Info buildinfo
