package model

// StageName identifies one discrete unit of the build pipeline.
type StageName string

const (
	StageScripts         StageName = "scripts"
	StageCompilePDF      StageName = "compile_pdf"
	StageCleanLogs       StageName = "clean_logs"
	StageCompileHTML     StageName = "compile_html"
	StageCopyPDF         StageName = "copy_pdf"
	StageBibliography    StageName = "bibliography"
	StageConvertXML      StageName = "convert_xml"
	StagePostprocessHTML StageName = "postprocess_html"
	StageRenameHTML      StageName = "rename_html"
	StageCleanCSS        StageName = "clean_css"
)

// StageResult is the outcome recorded for a dispatched stage.
type StageResult string

const (
	ResultExecuted    StageResult = "executed"
	ResultSkipped     StageResult = "skipped"
	ResultUnavailable StageResult = "unavailable" // a tool could not be launched
	ResultFailed      StageResult = "failed"
)
